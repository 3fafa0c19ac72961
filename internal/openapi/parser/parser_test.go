package parser

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
)

const generatorDocument = `{
  "openapi": "3.0.0",
  "info": { "title": "Generator", "version": "1.0.0" },
  "paths": {
    "/docker/install": {
      "post": {
        "operationId": "dockerInstall",
        "summary": "Docker install script",
        "x-iacgen-filename": "{{ environment }}_Install.zip",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": { "$ref": "#/components/schemas/DockerInstall" }
            }
          }
        },
        "responses": {
          "200": {
            "description": "archive",
            "content": { "application/zip": {} }
          },
          "422": { "description": "validation error" }
        }
      },
      "get": {
        "operationId": "dockerInstallInfo",
        "responses": { "200": { "description": "ok" } }
      }
    },
    "/ci/github": {
      "post": {
        "operationId": "githubActions",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {
                  "steps": { "type": "array", "minItems": 1, "items": { "type": "string" } }
                }
              }
            }
          }
        },
        "responses": {
          "200": {
            "description": "ok",
            "content": { "application/json": { "schema": { "type": "object" } } }
          }
        }
      }
    }
  },
  "components": {
    "schemas": {
      "DockerInstall": {
        "type": "object",
        "required": ["os"],
        "properties": {
          "os": { "type": "string", "enum": ["ubuntu", "centos"] },
          "environment": {
            "type": "string",
            "default": "Docker",
            "x-iacgen": { "Omit": false, "body_key": "environment" }
          }
        }
      }
    }
  }
}`

func TestOperationsCollectsPostOperations(t *testing.T) {
	t.Parallel()

	doc := pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("generator.json"), []byte(generatorDocument))
	operations, err := New(pkgopenapi.NewParserOptions()).Operations(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse operations: %v", err)
	}

	if _, ok := operations["dockerInstallInfo"]; ok {
		t.Fatalf("GET operation should not be collected by default")
	}

	docker, ok := operations["dockerInstall"]
	if !ok {
		t.Fatalf("operation dockerInstall not found")
	}
	if docker.Method != "POST" || docker.Path != "/docker/install" {
		t.Fatalf("unexpected address %s %s", docker.Method, docker.Path)
	}
	if !docker.ProducesBinary() {
		t.Fatalf("expected dockerInstall to produce binary, got %v", docker.Produces)
	}
	if diff := cmp.Diff([]string{"ubuntu", "centos"}, docker.RequestBody.Properties["os"].Enum, cmp.Comparer(func(a, b any) bool { return a == b })); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}

	wantExt := map[string]any{ExtensionNamespace: map[string]any{"filename": "{{ environment }}_Install.zip"}}
	if diff := cmp.Diff(wantExt, docker.Extensions); diff != "" {
		t.Fatalf("operation extensions mismatch (-want +got):\n%s", diff)
	}

	env := docker.RequestBody.Properties["environment"]
	wantEnvExt := map[string]any{ExtensionNamespace: map[string]any{"omit": false, "body-key": "environment"}}
	if diff := cmp.Diff(wantEnvExt, env.Extensions); diff != "" {
		t.Fatalf("property extensions mismatch (-want +got):\n%s", diff)
	}

	github := operations["githubActions"]
	if github.ProducesBinary() {
		t.Fatalf("githubActions should produce json")
	}
	steps := github.RequestBody.Properties["steps"]
	if steps.MinItems == nil || *steps.MinItems != 1 {
		t.Fatalf("expected minItems 1, got %+v", steps.MinItems)
	}
}

func TestOperationsHonoursMethodOption(t *testing.T) {
	t.Parallel()

	doc := pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("generator.json"), []byte(generatorDocument))
	parser := New(pkgopenapi.NewParserOptions(pkgopenapi.WithMethods("get")))
	operations, err := parser.Operations(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse operations: %v", err)
	}
	if len(operations) != 1 {
		t.Fatalf("expected a single GET operation, got %d", len(operations))
	}
	if _, ok := operations["dockerInstallInfo"]; !ok {
		t.Fatalf("expected dockerInstallInfo")
	}
}

func TestOperationsRejectsEmptyPaths(t *testing.T) {
	t.Parallel()

	doc := pkgopenapi.MustNewDocument(pkgopenapi.SourceFromFile("empty.json"), []byte(`{"openapi":"3.0.0","info":{"title":"x","version":"1"},"paths":{}}`))
	if _, err := New(pkgopenapi.NewParserOptions()).Operations(context.Background(), doc); err == nil {
		t.Fatalf("expected error for document without paths")
	}
}

func TestConvertSchemaHandlesRecursiveReferences(t *testing.T) {
	const document = `{
  "openapi": "3.0.0",
  "info": { "title": "Cycle", "version": "1.0.0" },
  "paths": {},
  "components": {
    "schemas": {
      "Cluster": {
        "type": "object",
        "properties": {
          "node": { "$ref": "#/components/schemas/Node" }
        }
      },
      "Node": {
        "type": "object",
        "properties": {
          "cluster": { "$ref": "#/components/schemas/Cluster" }
        }
      }
    }
  }
}`

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(document))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}

	cluster := convertSchema(doc.Components.Schemas["Cluster"], nil)
	node, ok := cluster.Properties["node"]
	if !ok {
		t.Fatalf("expected node property on Cluster schema")
	}
	back, ok := node.Properties["cluster"]
	if !ok {
		t.Fatalf("expected cluster property on Node schema")
	}
	if back.Ref == "" || len(back.Properties) != 0 {
		t.Fatalf("expected cycle to stop at a reference, got %s", back.DebugString())
	}
}

func TestConvertSchemaMergesAllOfSchemas(t *testing.T) {
	t.Parallel()

	const document = `{
  "openapi": "3.0.0",
  "info": { "title": "AllOf", "version": "1.0.0" },
  "paths": {
    "/terraform/ec2": {
      "post": {
        "operationId": "terraformEC2",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "allOf": [
                  {"$ref": "#/components/schemas/BaseResource"},
                  {
                    "type": "object",
                    "required": ["instance_type"],
                    "properties": {
                      "instance_type": {"type": "string", "pattern": "^[a-z0-9]+\\.[a-z0-9]+$"}
                    }
                  }
                ]
              }
            }
          }
        },
        "responses": {
          "200": {"description": "ok"}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "BaseResource": {
        "type": "object",
        "required": ["region"],
        "properties": {
          "region": {"type": "string"},
          "count": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

	doc, err := pkgopenapi.NewDocument(pkgopenapi.SourceFromFile("inline.json"), []byte(document))
	if err != nil {
		t.Fatalf("construct document: %v", err)
	}

	operations, err := New(pkgopenapi.NewParserOptions()).Operations(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse operations: %v", err)
	}

	req := operations["terraformEC2"].RequestBody
	if req.Type != "object" {
		t.Fatalf("request schema type = %q, want object", req.Type)
	}
	if len(req.Properties) != 3 {
		t.Fatalf("properties length = %d, want 3", len(req.Properties))
	}
	if it, ok := req.Properties["instance_type"]; !ok || it.Pattern == "" {
		t.Fatalf("expected instance_type property with pattern, got %+v", it)
	}
	if count, ok := req.Properties["count"]; !ok || count.Minimum == nil || *count.Minimum != 1 {
		t.Fatalf("expected count property with minimum 1, got %+v", count)
	}

	if diff := cmp.Diff([]string{"instance_type", "region"}, req.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
}
