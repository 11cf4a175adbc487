package registry

import "log/slog"

// Merge implements the merged build-mode rules: static is the base,
// dynamic overlays per model. Every merge decision is logged at debug
// level as the specification requires.
func Merge(static, dynamic map[string]ModelInfo, log *slog.Logger) map[string]ModelInfo {
	if log == nil {
		log = slog.Default()
	}
	out := make(map[string]ModelInfo, len(static)+len(dynamic))
	for name, m := range static {
		out[name] = m
	}

	for name, dyn := range dynamic {
		stat, ok := out[name]
		if !ok {
			log.Debug("registry merge: model only in dynamic, added wholesale", "model", name)
			out[name] = dyn
			continue
		}
		out[name] = mergeModel(stat, dyn, log)
	}
	return out
}

func mergeModel(stat, dyn ModelInfo, log *slog.Logger) ModelInfo {
	merged := stat
	merged.Fields = mergeFields(stat.Fields, dyn.Fields, stat.Model, log)
	merged.Methods = mergeMethods(stat.Methods, dyn.Methods, stat.Model, log)
	if len(dyn.States) > 0 {
		log.Debug("registry merge: states taken from dynamic", "model", stat.Model)
		merged.States = dyn.States
	}
	return merged
}

// mergeFields: dynamic value overrides static on conflict; fields in
// dynamic only are added; fields only in static are retained.
func mergeFields(stat, dyn map[string]FieldInfo, model string, log *slog.Logger) map[string]FieldInfo {
	out := make(map[string]FieldInfo, len(stat)+len(dyn))
	for name, f := range stat {
		out[name] = f
	}
	for name, f := range dyn {
		if _, existed := out[name]; existed {
			log.Debug("registry merge: field overridden by dynamic", "model", model, "field", name)
		} else {
			log.Debug("registry merge: field added from dynamic", "model", model, "field", name)
		}
		out[name] = f
	}
	return out
}

// mergeMethods: static wins on conflict (it is richer, sourced from parsed
// decorators); dynamic adds newly discovered methods only.
func mergeMethods(stat, dyn map[string]MethodInfo, model string, log *slog.Logger) map[string]MethodInfo {
	out := make(map[string]MethodInfo, len(stat)+len(dyn))
	for name, m := range stat {
		out[name] = m
	}
	for name, m := range dyn {
		if _, existed := out[name]; existed {
			continue
		}
		log.Debug("registry merge: method added from dynamic", "model", model, "method", name)
		out[name] = m
	}
	return out
}
