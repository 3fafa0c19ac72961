package model

import "sort"

// ExtensionNamespace is the vendor extension prefix read by the builder.
const ExtensionNamespace = extensionNamespace

// Form level extension keys.
const extFilename = "filename"

var fieldExtensionKeys = []string{
	extToggle, extOrder, extBodyKey, extOmit, extLabel, extPlaceholder,
	extHelp, extSecret, extOptionLabels, extMinItems, extOptionsFrom, extOptionsPath,
}

// AllowedExtensionKeys lists every key understood under x-iacgen, sorted.
func AllowedExtensionKeys() []string {
	keys := append([]string{extFilename}, fieldExtensionKeys...)
	sort.Strings(keys)
	return keys
}

// IsAllowedExtensionKey reports whether key is understood under x-iacgen.
func IsAllowedExtensionKey(key string) bool {
	for _, allowed := range AllowedExtensionKeys() {
		if allowed == key {
			return true
		}
	}
	return false
}

// ExtensionValueValid reports whether value has a shape the builder reads.
// option-labels maps enum values to labels; everything else is a scalar.
func ExtensionValueValid(key string, value any) bool {
	if key == extOptionLabels {
		_, ok := value.(map[string]any)
		return ok
	}
	switch value.(type) {
	case string, bool, float64, int, int64:
		return true
	}
	return false
}
