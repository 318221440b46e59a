// internal/service/template_service.go
package service

import (
	"strings"
)

// RenderTemplate replaces every {key} in template. Empty values render as "N/A".
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if strings.TrimSpace(v) == "" {
			v = "N/A"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
