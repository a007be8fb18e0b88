package vacuum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myvacbot_commands_total",
		Help: "The total number of commands relayed to robots",
	}, []string{"command", "result"})

	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myvacbot_polls_total",
		Help: "The total number of robot state polls",
	}, []string{"result"})

	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "myvacbot_scans_total",
		Help: "The total number of network scans for robots",
	}, []string{"result"})

	robotAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "myvacbot_robot_available",
		Help: "Whether the last poll reached the robot (1=yes, 0=no)",
	}, []string{"robot"})

	robotBattery = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "myvacbot_robot_battery_percent",
		Help: "Battery level reported by the robot",
	}, []string{"robot"})

	robotCharging = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "myvacbot_robot_charging",
		Help: "Whether the robot is on a powered dock (1=yes, 0=no)",
	}, []string{"robot"})
)
