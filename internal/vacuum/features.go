package vacuum

// Feature is a bit set of vacuum capabilities, using the hub's flag values.
type Feature uint32

const (
	SupportTurnOn      Feature = 1
	SupportTurnOff     Feature = 2
	SupportPause       Feature = 4
	SupportStop        Feature = 8
	SupportReturnHome  Feature = 16
	SupportFanSpeed    Feature = 32
	SupportBattery     Feature = 64
	SupportStatus      Feature = 128
	SupportSendCommand Feature = 256
	SupportLocate      Feature = 512
	SupportCleanSpot   Feature = 1024
)

// SupportRobart is what every RobotAPI robot can do.
const SupportRobart = SupportBattery | SupportPause | SupportReturnHome |
	SupportSendCommand | SupportStatus | SupportStop |
	SupportTurnOff | SupportTurnOn

var featureNames = []struct {
	flag Feature
	name string
}{
	{SupportTurnOn, "start"},
	{SupportPause, "pause"},
	{SupportStop, "stop"},
	{SupportReturnHome, "return_home"},
	{SupportBattery, "battery"},
	{SupportStatus, "status"},
	{SupportLocate, "locate"},
	{SupportCleanSpot, "clean_spot"},
	{SupportFanSpeed, "fan_speed"},
	{SupportSendCommand, "send_command"},
}

func (f Feature) Has(flag Feature) bool {
	return f&flag == flag
}

// Names lists the set flags as MQTT discovery feature names. Flags without a
// discovery name (turn_off) are left out.
func (f Feature) Names() []string {
	names := make([]string, 0, len(featureNames))
	for _, fn := range featureNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}
