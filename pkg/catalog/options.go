package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/patrickmn/go-cache"

	"github.com/goliatone/go-iacgen/pkg/client"
	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
)

// Getter is the part of *client.Client the options fetcher uses.
type Getter interface {
	Get(ctx context.Context, target client.Target) (*client.Response, error)
}

// OptionsFetcher loads select options that the template service lists at
// runtime, such as the available GitLab CI templates. Lists are cached per
// resolved path for a short time.
type OptionsFetcher struct {
	getter Getter
	cache  *cache.Cache
}

// NewOptionsFetcher wraps g. A non-positive ttl disables caching.
func NewOptionsFetcher(g Getter, ttl time.Duration) *OptionsFetcher {
	f := &OptionsFetcher{getter: g}
	if ttl > 0 {
		f.cache = cache.New(ttl, 2*ttl)
	}
	return f
}

// Options fetches the choices of field. The options path is rendered with
// the values collected so far as `values`.
func (f *OptionsFetcher) Options(ctx context.Context, field model.Field, values forminput.Values) ([]model.Option, error) {
	if f == nil || f.getter == nil {
		return nil, errors.New("catalog: options fetcher is not configured")
	}
	if !field.DynamicOptions() {
		return field.Options, nil
	}

	path, err := renderOptionsPath(field.Metadata[model.MetadataOptionsPath], values)
	if err != nil {
		return nil, fmt.Errorf("catalog: options for %s: %w", field.Name, err)
	}
	target := client.Target{
		Service: client.Service(field.Metadata[model.MetadataOptionsSource]),
		Method:  http.MethodGet,
		Path:    path,
	}
	key := target.String()

	if f.cache != nil {
		if cached, ok := f.cache.Get(key); ok {
			return cached.([]model.Option), nil
		}
	}

	resp, err := f.getter.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	options, err := decodeOptions(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: options for %s: %w", field.Name, err)
	}
	if f.cache != nil {
		f.cache.SetDefault(key, options)
	}
	return options, nil
}

// Populate fills the options of every top-level dynamic select in form,
// in field order, so later paths can reference earlier values.
func (f *OptionsFetcher) Populate(ctx context.Context, form *model.FormModel, values map[string]any) error {
	for i := range form.Fields {
		field := &form.Fields[i]
		if !field.DynamicOptions() {
			continue
		}
		options, err := f.Options(ctx, *field, forminput.Values(values))
		if err != nil {
			return err
		}
		field.Options = options
	}
	return nil
}

func renderOptionsPath(src string, values forminput.Values) (string, error) {
	tpl, err := pongo2.FromString("{% autoescape off %}" + src + "{% endautoescape %}")
	if err != nil {
		return "", err
	}
	out, err := tpl.Execute(pongo2.Context{"values": forminput.Plain(values)})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// decodeOptions accepts a list of strings or of {label, value} objects.
func decodeOptions(data []byte) ([]model.Option, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		out := make([]model.Option, 0, len(names))
		for _, name := range names {
			out = append(out, model.Option{Label: name, Value: name})
		}
		return out, nil
	}
	var options []model.Option
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, errors.New("expected a JSON list of options")
	}
	return options, nil
}
