package config

import (
	"fmt"
	"strconv"
)

// OptionType is the declared type of a configuration option, used by
// SCHEMA to validate/coerce raw TOML values without runtime reflection
// over the Config struct (Design Notes §9: "use a declarative table...
// no runtime introspection needed").
type OptionType int

const (
	TypeBool OptionType = iota
	TypeInt
	TypeUint
	TypeString
	TypeStringList
	TypeEnum
	TypeKeyBindings
	TypeAutoSettings
	TypeMap
)

// OptionSpec describes one recognized configuration key: its type, its
// default (as a string representation for display purposes), and a
// validator run against a candidate value before it is applied.
type OptionSpec struct {
	Name     string
	Type     OptionType
	Default  string
	Validate func(raw any) error
}

// Schema is the declarative option table of spec §6 "Recognized
// options". The setup tool iterates this table instead of reflecting on
// the Config struct; every key from spec.md §6 is present.
var Schema = map[string]OptionSpec{
	"inputmethod":                {Name: "inputmethod", Type: TypeStringList, Default: "", Validate: validateMaxLen(10)},
	"dictionary":                 {Name: "dictionary", Type: TypeStringList, Default: "en_US", Validate: validateMaxLen(10)},
	"emojipredictions":           {Name: "emojipredictions", Type: TypeBool, Default: "false"},
	"emojitriggercharacters":     {Name: "emojitriggercharacters", Type: TypeString, Default: "_"},
	"unicodedataall":             {Name: "unicodedataall", Type: TypeBool, Default: "false"},
	"mincharcomplete":            {Name: "mincharcomplete", Type: TypeInt, Default: "1", Validate: validateIntRange(1, 9)},
	"pagesize":                   {Name: "pagesize", Type: TypeInt, Default: "6", Validate: validateIntRange(1, 9)},
	"inlinecompletion":           {Name: "inlinecompletion", Type: TypeEnum, Default: "auto", Validate: validateEnum("off", "on", "auto")},
	"autoselectcandidate":        {Name: "autoselectcandidate", Type: TypeEnum, Default: "off", Validate: validateEnum("off", "on")},
	"autocommitcharacters":       {Name: "autocommitcharacters", Type: TypeString, Default: ""},
	"tabenable":                  {Name: "tabenable", Type: TypeBool, Default: "true"},
	"arrowkeysreopenpreedit":     {Name: "arrowkeysreopenpreedit", Type: TypeBool, Default: "false"},
	"disableinterminals":        {Name: "disableinterminals", Type: TypeBool, Default: "false"},
	"offtherecord":               {Name: "offtherecord", Type: TypeBool, Default: "false"},
	"recordmode":                 {Name: "recordmode", Type: TypeEnum, Default: "0", Validate: validateIntRange(0, 3)},
	"inputmode":                  {Name: "inputmode", Type: TypeBool, Default: "true"},
	"rememberinputmode":          {Name: "rememberinputmode", Type: TypeBool, Default: "true"},
	"rememberlastusedpreeditime": {Name: "rememberlastusedpreeditime", Type: TypeBool, Default: "false"},
	"candidatesdelaymilliseconds": {Name: "candidatesdelaymilliseconds", Type: TypeUint, Default: "200"},
	"debuglevel":                 {Name: "debuglevel", Type: TypeInt, Default: "0", Validate: validateIntRange(0, 3)},
	"keybindings":                {Name: "keybindings", Type: TypeKeyBindings, Default: ""},
	"autosettings":                {Name: "autosettings", Type: TypeAutoSettings, Default: ""},
	"appearance":                  {Name: "appearance", Type: TypeMap, Default: ""},
}

func validateIntRange(lo, hi int) func(any) error {
	return func(raw any) error {
		v, ok := toInt(raw)
		if !ok {
			return fmt.Errorf("expected integer, got %T", raw)
		}
		if v < lo || v > hi {
			return fmt.Errorf("value %d out of range [%d, %d]", v, lo, hi)
		}
		return nil
	}
}

func validateMaxLen(max int) func(any) error {
	return func(raw any) error {
		list, ok := raw.([]string)
		if !ok {
			return fmt.Errorf("expected string list, got %T", raw)
		}
		if len(list) > max {
			return fmt.Errorf("list has %d entries, max is %d", len(list), max)
		}
		return nil
	}
}

func validateEnum(allowed ...string) func(any) error {
	return func(raw any) error {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", raw)
		}
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("value %q not one of %v", s, allowed)
	}
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
