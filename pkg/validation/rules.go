package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-iacgen/pkg/model"
)

// Rules is the flattened set of constraints of one field.
type Rules struct {
	Required bool
	Min      *float64
	Max      *float64
	MinLen   *int
	MaxLen   *int
	MinItems int
	MaxItems int
	Pattern  *regexp.Regexp
}

// RulesFor collects the constraints declared on field. Invalid patterns are
// ignored.
func RulesFor(field model.Field) Rules {
	rules := Rules{
		Required: field.Required,
		MinItems: field.MinimumItems(),
		MaxItems: field.MaxItems,
	}
	for _, v := range field.Validations {
		switch v.Kind {
		case model.ValidationRuleMin:
			if val, ok := parseFloat(v.Params["value"]); ok {
				rules.Min = &val
			}
		case model.ValidationRuleMax:
			if val, ok := parseFloat(v.Params["value"]); ok {
				rules.Max = &val
			}
		case model.ValidationRuleMinLength:
			if val, ok := parseInt(v.Params["value"]); ok {
				rules.MinLen = &val
			}
		case model.ValidationRuleMaxLength:
			if val, ok := parseInt(v.Params["value"]); ok {
				rules.MaxLen = &val
			}
		case model.ValidationRuleMinItems:
			if val, ok := parseInt(v.Params["value"]); ok && val > rules.MinItems {
				rules.MinItems = val
			}
		case model.ValidationRuleMaxItems:
			if val, ok := parseInt(v.Params["value"]); ok {
				rules.MaxItems = val
			}
		case model.ValidationRulePattern:
			if expr := v.Params["pattern"]; expr != "" {
				if re, err := regexp.Compile(expr); err == nil {
					rules.Pattern = re
				}
			}
		}
	}
	return rules
}

// CheckString validates free text. Empty optional text always passes.
func (r Rules) CheckString(value string) error {
	if strings.TrimSpace(value) == "" {
		if r.Required {
			return errors.New("is required")
		}
		return nil
	}
	if r.MinLen != nil && len(value) < *r.MinLen {
		return fmt.Errorf("must be at least %d characters", *r.MinLen)
	}
	if r.MaxLen != nil && len(value) > *r.MaxLen {
		return fmt.Errorf("must be at most %d characters", *r.MaxLen)
	}
	if r.Pattern != nil && !r.Pattern.MatchString(value) {
		return errors.New("does not match the required format")
	}
	return nil
}

// CheckNumber validates a numeric value given as a number or as text.
func (r Rules) CheckNumber(value any, integer bool) error {
	v, ok, err := toFloat(value, integer)
	if err != nil {
		return err
	}
	if !ok {
		if r.Required {
			return errors.New("is required")
		}
		return nil
	}
	if r.Min != nil && v < *r.Min {
		return fmt.Errorf("must be at least %s", strconv.FormatFloat(*r.Min, 'f', -1, 64))
	}
	if r.Max != nil && v > *r.Max {
		return fmt.Errorf("must be at most %s", strconv.FormatFloat(*r.Max, 'f', -1, 64))
	}
	return nil
}

// CheckArray validates the number of entries of an array field.
func (r Rules) CheckArray(length int) error {
	if r.MinItems > 0 && length < r.MinItems {
		if r.MinItems == 1 {
			return errors.New("needs at least one entry")
		}
		return fmt.Errorf("needs at least %d entries", r.MinItems)
	}
	if r.MaxItems > 0 && length > r.MaxItems {
		return fmt.Errorf("allows at most %d entries", r.MaxItems)
	}
	return nil
}

func toFloat(value any, integer bool) (float64, bool, error) {
	switch n := value.(type) {
	case nil:
		return 0, false, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case uint64:
		return float64(n), true, nil
	case float64:
		if !integer {
			return n, true, nil
		}
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false, fmt.Errorf("%v is out of range", n)
		}
		if n != math.Trunc(n) {
			return 0, false, errors.New("must be a whole number")
		}
		return n, true, nil
	case string:
		text := strings.TrimSpace(n)
		if text == "" {
			return 0, false, nil
		}
		if integer {
			parsed, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return 0, false, errors.New("must be a whole number")
			}
			return float64(parsed), true, nil
		}
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false, errors.New("must be a number")
		}
		return parsed, true, nil
	default:
		return 0, false, fmt.Errorf("expected number, got %T", value)
	}
}

func parseFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, err == nil
}

func parseInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	return val, err == nil
}
