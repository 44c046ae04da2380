package llm

import "regexp"

var promptVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderPrompt substitutes ${VAR} placeholders from vars. Unknown
// placeholders are left untouched so a partially-filled template still
// renders.
func RenderPrompt(template string, vars map[string]string) string {
	return promptVar.ReplaceAllStringFunc(template, func(match string) string {
		name := promptVar.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}
