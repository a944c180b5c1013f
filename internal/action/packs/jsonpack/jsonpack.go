// Package jsonpack provides actions that pick apart and store JSON documents.
package jsonpack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/tidwall/gjson"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

// Pack is the "json" action pack.
type Pack struct {
	out io.Writer
}

// New creates the pack; presented trees are written to out.
func New(out io.Writer) *Pack { return &Pack{out: out} }

func (p *Pack) Name() string { return "json" }

func (p *Pack) Handlers() []action.Handler {
	return []action.Handler{
		{
			Name: "extract_field_from_json_string", Func: extractField,
			Parameters: map[string]action.ParameterDefinition{
				"field_name":                 action.In(model.TypeString),
				"json_string":                action.In(model.TypeString),
				"extracted_json_field_value": action.Out(model.TypeString),
			},
		},
		{
			Name: "extract_object_from_json_list", Func: extractObject,
			Parameters: map[string]action.ParameterDefinition{
				"identifier":            action.In(model.TypeString),
				"id_field":              action.In(model.TypeString),
				"object_field":          action.In(model.TypeString),
				"json_string":           action.In(model.TypeString),
				"extracted_json_object": action.Out(model.TypeString),
			},
		},
		{
			Name: "store_result_to_json_file", Func: storeResult,
			Parameters: map[string]action.ParameterDefinition{
				"directory_path": action.In(model.TypeString),
				"identifier":     action.In(model.TypeString),
				"file_path":      action.Out(model.TypeString),
			},
		},
		{
			Name: "store_json_string_to_json_file", Func: storeString,
			Parameters: map[string]action.ParameterDefinition{
				"directory_path": action.In(model.TypeString),
				"identifier":     action.In(model.TypeString),
				"json_string":    action.In(model.TypeString),
				"file_path":      action.Out(model.TypeString),
			},
		},
		{
			Name: "present_simple_json_tree", Func: p.presentTree,
			Parameters: map[string]action.ParameterDefinition{
				"json_string":     action.In(model.TypeString),
				"node_name_field": action.In(model.TypeString),
				"parent_field":    action.In(model.TypeString),
			},
		},
		{
			Name: "store_json_string_to_custom_json_file", Func: storeToFile,
			Parameters: map[string]action.ParameterDefinition{
				"directory_path": action.In(model.TypeString),
				"file_name":      action.In(model.TypeString),
				"json_string":    action.In(model.TypeString),
				"file_path":      action.Out(model.TypeString),
			},
		},
	}
}

func text(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Raw
}

func extractField(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	field, _ := rc.Value("field_name", idx)
	doc, _ := rc.Value("json_string", idx)
	if field == "" || doc == "" {
		return model.Failedf("an unexpected error occurred while extracting the field: missing field name or JSON string")
	}

	var value string
	if gjson.Valid(doc) {
		if r := gjson.Get(doc, field); r.Exists() {
			value = text(r)
		}
	} else {
		// Not a document: look for a "field": "value" pair in the text.
		re := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"([^"]+)"`)
		if m := re.FindStringSubmatch(doc); m != nil {
			value = m[1]
		}
	}
	if value == "" {
		msg := fmt.Sprintf("Unable to find the field %q in the provided JSON string", field)
		slog.Error(msg)
		return model.Failedf("%s", msg)
	}
	return model.Succeeded("Field extracted", rc.Output("extracted_json_field_value", value, idx))
}

func extractObject(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	identifier, _ := rc.Value("identifier", idx)
	idField, _ := rc.Value("id_field", idx)
	objectField, _ := rc.Value("object_field", idx)
	doc, _ := rc.Value("json_string", idx)
	if identifier == "" || idField == "" || objectField == "" || doc == "" {
		return model.Failedf("an unexpected error occurred while extracting the object: missing identifier, id field, object field, or JSON list")
	}
	list := gjson.Parse(doc)
	if !list.IsArray() {
		return model.Failedf("an unexpected error occurred while extracting the object: json_string is not a JSON list")
	}

	var found gjson.Result
	list.ForEach(func(_, item gjson.Result) bool {
		if item.Get(idField).String() == identifier {
			found = item.Get(objectField)
			return false
		}
		return true
	})
	if !found.Exists() {
		msg := fmt.Sprintf("Unable to find the object with the identifier %q in the provided JSON list", identifier)
		slog.Error(msg)
		return model.Failedf("%s", msg)
	}
	return model.Succeeded("Object extracted", rc.Output("extracted_json_object", text(found), idx))
}

// fileName reads the named parameter, falling back to api_response.
func fileName(rc *model.RunContext, param string, idx int) string {
	name, ok := rc.Value(param, idx)
	if !ok || name == "" {
		name = "api_response"
		slog.Warn("no file name provided", "parameter", param, "file_name", name)
	}
	return name
}

func storeResult(_ context.Context, last *model.Result, rc *model.RunContext, idx int) *model.Result {
	if last == nil || last.Data == nil {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: no JSON response to store")
	}
	var doc []byte
	switch d := last.Data.(type) {
	case string:
		doc = []byte(d)
	default:
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return model.Failedf("an unexpected error occurred while storing the response to JSON file: %w", err)
		}
		doc = b
	}
	return writeFile(rc, fileName(rc, "identifier", idx), doc, idx)
}

func storeString(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	doc, ok := rc.Value("json_string", idx)
	if !ok {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: found no JSON string to store")
	}
	return writeFile(rc, fileName(rc, "identifier", idx), []byte(doc), idx)
}

func storeToFile(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	doc, ok := rc.Value("json_string", idx)
	if !ok {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: found no JSON string to store")
	}
	return writeFile(rc, fileName(rc, "file_name", idx), []byte(doc), idx)
}

// writeFile stores doc as <directory_path>/<name>.json and reports the path
// as the file_path output.
func writeFile(rc *model.RunContext, name string, doc []byte, idx int) *model.Result {
	dir, _ := rc.Value("directory_path", idx)
	if dir == "" {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: no directory_path provided")
	}
	path := filepath.Join(dir, name+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: %w", err)
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: %w", err)
	}
	slog.Debug("stored JSON file", "path", path)
	return model.Succeeded("Result stored as a JSON file", rc.Output("file_path", path, idx))
}

func (p *Pack) presentTree(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	doc, _ := rc.Value("json_string", idx)
	nameField, _ := rc.Value("node_name_field", idx)
	parentField, _ := rc.Value("parent_field", idx)
	if doc == "" || nameField == "" || parentField == "" {
		return model.Failedf("an unexpected error occurred while presenting the json tree: missing JSON string, node name field, or parent field")
	}
	root, err := buildTree(doc, nameField, parentField)
	if err != nil {
		return model.Failedf("an unexpected error occurred while presenting the json tree: %w", err)
	}
	fmt.Fprintln(p.out, root.String())
	return model.Succeeded("JSON tree presented")
}

// buildTree links the items of a flat JSON list into a tree through their
// parent field. The root is the last item without a parent; items naming an
// unknown parent are left out.
func buildTree(doc, nameField, parentField string) (*tree.Tree, error) {
	list := gjson.Parse(doc)
	if !gjson.Valid(doc) || !list.IsArray() {
		return nil, fmt.Errorf("json_string is not a JSON list")
	}
	items := list.Array()
	nodes := make(map[string]*tree.Tree, len(items))
	for _, item := range items {
		name := item.Get(nameField)
		if !name.Exists() {
			return nil, fmt.Errorf("an item has no %s field", nameField)
		}
		nodes[name.String()] = tree.Root(name.String())
	}

	var root *tree.Tree
	for _, item := range items {
		node := nodes[item.Get(nameField).String()]
		parent := item.Get(parentField)
		if !parent.Exists() || parent.Type == gjson.Null {
			root = node
			continue
		}
		if p, ok := nodes[parent.String()]; ok {
			p.Child(node)
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root node found")
	}
	return root, nil
}
