// Package conversation holds the per-call transcript and tool availability that
// drive the language model's turns.
package conversation

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

// Context is owned by a single call session and is not safe for concurrent use.
type Context struct {
	messages []*schema.Message
	tools    []*schema.ToolInfo
}

func New() *Context {
	return &Context{
		messages: make([]*schema.Message, 0, 16),
	}
}

// AddMessage appends msg to the transcript. Nil messages are ignored.
func (c *Context) AddMessage(msg *schema.Message) {
	if msg == nil {
		return
	}
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the transcript slice in order.
func (c *Context) Messages() []*schema.Message {
	out := make([]*schema.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Context) Len() int {
	return len(c.messages)
}

// Last returns the most recent message, or nil for an empty transcript.
func (c *Context) Last() *schema.Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// SetTools replaces the active tool set. At most one tool may be active.
func (c *Context) SetTools(tools ...*schema.ToolInfo) error {
	active := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		active = append(active, t)
	}
	if len(active) > 1 {
		return fmt.Errorf("%w: at most one active tool is allowed, got %d", contractx.ErrValidation, len(active))
	}
	c.tools = active
	return nil
}

func (c *Context) ClearTools() {
	c.tools = nil
}

// Tools returns a copy of the active tool set.
func (c *Context) Tools() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, len(c.tools))
	copy(out, c.tools)
	return out
}

// HasTool reports whether a tool with the given wire name is currently invokable.
func (c *Context) HasTool(name string) bool {
	for _, t := range c.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Reset drops the transcript and the active tools together.
func (c *Context) Reset() {
	c.messages = c.messages[:0]
	c.tools = nil
}
