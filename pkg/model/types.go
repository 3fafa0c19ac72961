package model

import internalmodel "github.com/goliatone/go-iacgen/internal/model"

// FieldType re-exports the internal FieldType enumeration.
type FieldType = internalmodel.FieldType

const (
	FieldTypeString  = internalmodel.FieldTypeString
	FieldTypeInteger = internalmodel.FieldTypeInteger
	FieldTypeNumber  = internalmodel.FieldTypeNumber
	FieldTypeBoolean = internalmodel.FieldTypeBoolean
	FieldTypeSelect  = internalmodel.FieldTypeSelect
	FieldTypeToggle  = internalmodel.FieldTypeToggle
	FieldTypeArray   = internalmodel.FieldTypeArray
	FieldTypeObject  = internalmodel.FieldTypeObject
)

const (
	ValidationRuleMin       = internalmodel.ValidationRuleMin
	ValidationRuleMax       = internalmodel.ValidationRuleMax
	ValidationRuleMinLength = internalmodel.ValidationRuleMinLength
	ValidationRuleMaxLength = internalmodel.ValidationRuleMaxLength
	ValidationRulePattern   = internalmodel.ValidationRulePattern
	ValidationRuleMinItems  = internalmodel.ValidationRuleMinItems
	ValidationRuleMaxItems  = internalmodel.ValidationRuleMaxItems
)

const (
	MetadataBodyKey  = internalmodel.MetadataBodyKey
	MetadataBodyOmit = internalmodel.MetadataBodyOmit
	MetadataSecret   = internalmodel.MetadataSecret
	MetadataHelp     = internalmodel.MetadataHelp

	MetadataOptionsSource = internalmodel.MetadataOptionsSource
	MetadataOptionsPath   = internalmodel.MetadataOptionsPath
)

type ValidationRule = internalmodel.ValidationRule
type Option = internalmodel.Option
type Field = internalmodel.Field
type FormModel = internalmodel.FormModel

// DefaultLabeler turns snake_case and camelCase names into title-cased labels.
func DefaultLabeler(name string) string {
	return internalmodel.DefaultLabeler(name)
}
