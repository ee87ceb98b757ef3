package board

import (
	"strings"
)

// ConfigResult is the outcome of a configuration mutation.
type ConfigResult int

const (
	ConfigSuccess ConfigResult = iota
	ConfigSuccessNoChange
	ConfigInvalidFormat
	ConfigInvalidConfigID
	ConfigInvalidOptionID
)

func (r ConfigResult) String() string {
	switch r {
	case ConfigSuccess:
		return "success"
	case ConfigSuccessNoChange:
		return "success (no change)"
	case ConfigInvalidFormat:
		return "invalid format"
	case ConfigInvalidConfigID:
		return "invalid config id"
	case ConfigInvalidOptionID:
		return "invalid option id"
	default:
		return "unknown"
	}
}

// OK reports whether r is ConfigSuccess or ConfigSuccessNoChange. Any other
// result means the configuration was rejected and callers should substitute
// defaults and warn.
func (r ConfigResult) OK() bool {
	return r == ConfigSuccess || r == ConfigSuccessNoChange
}

// BuildConfigString returns "package:arch:board", suffixed with
// ":<CustomConfigString>" when the board has menus.
func (b *Board) BuildConfigString() string {
	s := b.Key().String()
	if custom := b.CustomConfigString(); custom != "" {
		s += ":" + custom
	}
	return s
}

// CustomConfigString returns the selected options as comma separated
// "menu=option" pairs in declaration order, or "" for a board without menus.
func (b *Board) CustomConfigString() string {
	if len(b.configItems) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, item := range b.configItems {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(item.ID)
		sb.WriteByte('=')
		sb.WriteString(item.Selected)
	}
	return sb.String()
}

// LoadConfig applies a configuration string such as
// "cpu=atmega328,speed=16000000". An empty string resets every menu to its
// default.
//
// Segments are applied in order and are not rolled back: when a later
// segment is malformed or names an unknown menu or option, the earlier
// segments stay applied and the error result is returned immediately.
func (b *Board) LoadConfig(s string) ConfigResult {
	if s == "" {
		b.ResetConfig()
		return ConfigSuccess
	}
	result := ConfigSuccessNoChange
	for _, segment := range strings.Split(s, ",") {
		key, value, ok := splitConfigSegment(segment)
		if !ok {
			return ConfigInvalidFormat
		}
		switch r := b.UpdateConfig(key, value); r {
		case ConfigSuccessNoChange:
		case ConfigSuccess:
			result = ConfigSuccess
		default:
			return r
		}
	}
	return result
}

func splitConfigSegment(segment string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(strings.TrimSpace(segment), "=")
	if !ok || key == "" || value == "" {
		return "", "", false
	}
	if strings.ContainsAny(key, " \t") || strings.ContainsAny(value, " \t") {
		return "", "", false
	}
	return key, value, true
}

// UpdateConfig selects optionID for the menu configID.
func (b *Board) UpdateConfig(configID, optionID string) ConfigResult {
	item := b.ConfigItem(configID)
	if item == nil {
		return ConfigInvalidConfigID
	}
	if _, ok := item.Option(optionID); !ok {
		return ConfigInvalidOptionID
	}
	if item.Selected == optionID {
		return ConfigSuccessNoChange
	}
	item.Selected = optionID
	return ConfigSuccess
}

// ResetConfig selects the first option of every menu.
func (b *Board) ResetConfig() {
	for _, item := range b.configItems {
		if len(item.Options) > 0 {
			item.Selected = item.Options[0].ID
		}
	}
}
