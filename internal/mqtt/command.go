package mqtt

import (
	"fmt"
)

type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

func (c *Command) String() string {
	if len(c.Params) == 0 {
		return fmt.Sprintf("command:%s", c.Command)
	}
	return fmt.Sprintf("command:%s params:%v", c.Command, c.Params)
}

type CommandHandler interface {
	HandleCommand(id string, command *Command) error
}
