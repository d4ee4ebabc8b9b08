package config

// applyRaw copies whatever keys of raw validate against Schema onto cfg,
// logging and skipping the rest — the partial-recovery behavior spec §7
// requires for MalformedInput ("offending entry skipped; rest loaded").
// keybindings, autosettings and appearance are not recovered by this
// path: applyKey has no case for them, so they keep their defaults.
func applyRaw(cfg *Config, raw map[string]any) {
	for key, spec := range Schema {
		val, present := raw[key]
		if !present {
			continue
		}
		if spec.Validate != nil {
			if err := spec.Validate(normalizeForValidation(spec.Type, val)); err != nil {
				log.Warnf("config key %q invalid: %v, keeping default", key, err)
				continue
			}
		}
		applyKey(cfg, key, val)
	}
}

// normalizeForValidation coerces TOML-decoded values (int64, []any, ...)
// into the shapes OptionSpec.Validate expects.
func normalizeForValidation(t OptionType, val any) any {
	switch t {
	case TypeStringList:
		if list, ok := val.([]any); ok {
			out := make([]string, 0, len(list))
			for _, v := range list {
				if s, ok := v.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	case TypeInt, TypeUint, TypeEnum:
		if i, ok := val.(int64); ok {
			return int(i)
		}
	}
	return val
}

func applyKey(cfg *Config, key string, val any) {
	switch key {
	case "inputmethod":
		if v, ok := toStringList(val); ok {
			cfg.InputMethods = v
		}
	case "dictionary":
		if v, ok := toStringList(val); ok {
			cfg.Dictionaries = v
		}
	case "emojipredictions":
		if v, ok := val.(bool); ok {
			cfg.EmojiPredictions = v
		}
	case "emojitriggercharacters":
		if v, ok := val.(string); ok {
			cfg.EmojiTriggerCharacters = v
		}
	case "unicodedataall":
		if v, ok := val.(bool); ok {
			cfg.UnicodeDataAll = v
		}
	case "mincharcomplete":
		if v, ok := toInt(val); ok {
			cfg.MinCharComplete = v
		}
	case "pagesize":
		if v, ok := toInt(val); ok {
			cfg.PageSize = v
		}
	case "inlinecompletion":
		if v, ok := val.(string); ok {
			cfg.InlineCompletion = InlineCompletionMode(v)
		}
	case "autoselectcandidate":
		if v, ok := val.(string); ok {
			cfg.AutoSelectCandidate = AutoSelectMode(v)
		}
	case "autocommitcharacters":
		if v, ok := val.(string); ok {
			cfg.AutoCommitCharacters = v
		}
	case "tabenable":
		if v, ok := val.(bool); ok {
			cfg.TabEnable = v
		}
	case "arrowkeysreopenpreedit":
		if v, ok := val.(bool); ok {
			cfg.ArrowKeysReopenPreedit = v
		}
	case "disableinterminals":
		if v, ok := val.(bool); ok {
			cfg.DisableInTerminals = v
		}
	case "offtherecord":
		if v, ok := val.(bool); ok {
			cfg.OffTheRecord = v
		}
	case "recordmode":
		if v, ok := toInt(val); ok {
			cfg.RecordMode = RecordMode(v)
		}
	case "inputmode":
		if v, ok := val.(bool); ok {
			cfg.InputMode = v
		}
	case "rememberinputmode":
		if v, ok := val.(bool); ok {
			cfg.RememberInputMode = v
		}
	case "rememberlastusedpreeditime":
		if v, ok := val.(bool); ok {
			cfg.RememberLastUsedPreeditIme = v
		}
	case "candidatesdelaymilliseconds":
		if v, ok := toInt(val); ok {
			cfg.CandidatesDelayMilliseconds = uint(v)
		}
	case "debuglevel":
		if v, ok := toInt(val); ok {
			cfg.DebugLevel = v
		}
	}
}

func toStringList(val any) ([]string, bool) {
	switch v := val.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
