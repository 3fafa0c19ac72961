package parser

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
)

// ExtensionNamespace groups the vendor extensions the form builder reads.
// Both the nested form (x-iacgen: {toggle: true}) and the flat form
// (x-iacgen-toggle: true) are accepted; the parser normalises to nested.
const ExtensionNamespace = "x-iacgen"

func extractExtensions(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	namespace := make(map[string]any)
	for key, value := range raw {
		switch {
		case key == ExtensionNamespace:
			if mapped, ok := value.(map[string]any); ok {
				for k, v := range mapped {
					namespace[normaliseKey(k)] = v
				}
			}
		case strings.HasPrefix(key, ExtensionNamespace+"-"):
			namespace[normaliseKey(strings.TrimPrefix(key, ExtensionNamespace+"-"))] = value
		}
	}
	if len(namespace) == 0 {
		return nil
	}
	return map[string]any{ExtensionNamespace: namespace}
}

func normaliseKey(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-")
}

// mergeAllOf folds allOf members into the target: properties and required
// names are unioned, scalar attributes only fill gaps.
func mergeAllOf(target *pkgopenapi.Schema, refs openapi3.SchemaRefs, visiting map[*openapi3.Schema]bool) {
	if target == nil || len(refs) == 0 {
		return
	}
	for _, ref := range refs {
		member := convertSchema(ref, visiting)
		if target.Type == "" {
			target.Type = member.Type
		}
		if target.Description == "" {
			target.Description = member.Description
		}
		if target.Title == "" {
			target.Title = member.Title
		}
		if len(member.Properties) > 0 {
			if target.Properties == nil {
				target.Properties = make(map[string]pkgopenapi.Schema, len(member.Properties))
			}
			for name, property := range member.Properties {
				if _, exists := target.Properties[name]; !exists {
					target.Properties[name] = property
				}
			}
		}
		for _, name := range member.Required {
			if !containsString(target.Required, name) {
				target.Required = append(target.Required, name)
			}
		}
		target.Extensions = mergeExtensions(target.Extensions, member.Extensions)
	}
}

func mergeExtensions(dst, src map[string]any) map[string]any {
	srcNS, ok := src[ExtensionNamespace].(map[string]any)
	if !ok || len(srcNS) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, 1)
	}
	dstNS, _ := dst[ExtensionNamespace].(map[string]any)
	if dstNS == nil {
		dstNS = make(map[string]any, len(srcNS))
	}
	for key, value := range srcNS {
		if _, exists := dstNS[key]; !exists {
			dstNS[key] = value
		}
	}
	dst[ExtensionNamespace] = dstNS
	return dst
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
