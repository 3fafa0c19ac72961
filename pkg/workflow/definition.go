package workflow

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-iacgen/pkg/client"
	"github.com/goliatone/go-iacgen/pkg/mapper"
	"github.com/goliatone/go-iacgen/pkg/model"
	"github.com/goliatone/go-iacgen/pkg/validation"
)

// ResponseKind is the shape of a successful primary response.
type ResponseKind string

const (
	// ResponseJSON is an object carrying the generated text in OutputField.
	ResponseJSON ResponseKind = "json"
	// ResponseBinary is the artifact itself.
	ResponseBinary ResponseKind = "binary"
	// ResponseDownload means the primary call generated server side and the
	// artifact is fetched from the download folder endpoint.
	ResponseDownload ResponseKind = "download"
)

const (
	DefaultOutputField    = "output"
	DefaultSecondaryField = "tfvars_file"
	DefaultSecondaryName  = "terraform.tfvars"
)

// Secondary exchanges the binary primary response for the final archive.
type Secondary struct {
	Target      client.Target
	Field       string
	Filename    string
	ContentType string
}

// DownloadStep locates a server side generated folder. Folder and Source are
// templates rendered with the request body.
type DownloadStep struct {
	Service client.Service
	Folder  string
	Source  string
}

// Definition describes one form's workflow. Primary.Path and Filename are
// pongo2 templates rendered with the mapped body as `body`.
type Definition struct {
	ID          string
	Title       string
	Form        model.FormModel
	Resolver    validation.Resolver
	Mapper      mapper.Mapper
	Defaults    map[string]any
	Primary     client.Target
	Response    ResponseKind
	OutputField string
	Secondary   *Secondary
	Download    *DownloadStep
	Filename    string
	ContentType string
}

// Validate reports configuration errors, including templates that do not
// compile.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("workflow: definition id is required")
	}
	if strings.TrimSpace(d.Primary.Path) == "" {
		return fmt.Errorf("workflow %s: primary path is required", d.ID)
	}
	switch strings.ToUpper(d.Primary.Method) {
	case "", http.MethodPost, http.MethodGet:
	default:
		return fmt.Errorf("workflow %s: unsupported method %q", d.ID, d.Primary.Method)
	}
	switch d.Response {
	case ResponseJSON, ResponseBinary:
		if d.Download != nil {
			return fmt.Errorf("workflow %s: download step requires response kind %q", d.ID, ResponseDownload)
		}
	case ResponseDownload:
		if d.Download == nil {
			return fmt.Errorf("workflow %s: response kind %q requires a download step", d.ID, ResponseDownload)
		}
	default:
		return fmt.Errorf("workflow %s: unknown response kind %q", d.ID, d.Response)
	}
	if d.Secondary != nil {
		if d.Response != ResponseBinary {
			return fmt.Errorf("workflow %s: secondary step requires response kind %q", d.ID, ResponseBinary)
		}
		if strings.TrimSpace(d.Secondary.Target.Path) == "" {
			return fmt.Errorf("workflow %s: secondary path is required", d.ID)
		}
	}
	_, err := compile(d)
	return err
}

// TwoStep reports whether the workflow exchanges an intermediate artifact.
func (d Definition) TwoStep() bool {
	return d.Secondary != nil
}

type compiled struct {
	path     *pongo2.Template
	filename *pongo2.Template
	folder   *pongo2.Template
	source   *pongo2.Template
}

func compile(def Definition) (compiled, error) {
	var (
		out compiled
		err error
	)
	if out.path, err = compileTemplate(def.Primary.Path); err != nil {
		return out, fmt.Errorf("workflow %s: primary path: %w", def.ID, err)
	}
	if out.filename, err = compileTemplate(def.Filename); err != nil {
		return out, fmt.Errorf("workflow %s: filename: %w", def.ID, err)
	}
	if def.Download != nil {
		if out.folder, err = compileTemplate(def.Download.Folder); err != nil {
			return out, fmt.Errorf("workflow %s: download folder: %w", def.ID, err)
		}
		if out.source, err = compileTemplate(def.Download.Source); err != nil {
			return out, fmt.Errorf("workflow %s: download source: %w", def.ID, err)
		}
	}
	return out, nil
}

// Rendered values are paths and file names, not markup.
func compileTemplate(src string) (*pongo2.Template, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	return pongo2.FromString("{% autoescape off %}" + src + "{% endautoescape %}")
}

func render(tpl *pongo2.Template, body mapper.Body) (string, error) {
	if tpl == nil {
		return "", nil
	}
	out, err := tpl.Execute(pongo2.Context{"body": map[string]any(body)})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
