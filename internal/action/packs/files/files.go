// Package files reads, lists and writes local files.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

const timestampLayout = "2006-01-02_15-04-05"

// Pack is the "file_and_directory" action pack.
type Pack struct {
	out io.Writer
	now func() time.Time
}

// New creates the pack; listings go to out.
func New(out io.Writer) *Pack { return &Pack{out: out, now: time.Now} }

func (p *Pack) Name() string { return "file_and_directory" }

func (p *Pack) Handlers() []action.Handler {
	in, out := action.In(model.TypeString), action.Out(model.TypeString)
	return []action.Handler{
		{
			Name: "file_path_to_file_string", Func: readFile,
			Parameters: map[string]action.ParameterDefinition{"file_path": in, "file_string": out},
		},
		{
			Name: "get_local_files_list", Func: filesList,
			Parameters: map[string]action.ParameterDefinition{"directory_path": in, "files_list": out},
		},
		{
			Name: "list_local_files", Func: p.listFiles,
			Parameters: map[string]action.ParameterDefinition{"directory_path": in},
		},
		{
			Name: "prompt_user_to_choose_file", Func: chooseFile,
			Parameters: map[string]action.ParameterDefinition{
				"directory_path": in,
				"file_number":    action.In(model.TypeInteger),
				"file_path":      out,
			},
		},
		{
			Name: "store_api_response_to_timestamped_file", Func: p.storeResponse,
			Parameters: map[string]action.ParameterDefinition{
				"directory_path":      in,
				"file_name":           in,
				"file_extension":      in,
				"result_file_path":    out,
				"result_file_content": out,
			},
		},
		{
			Name: "store_parameter_value_to_timestamped_file", Func: p.storeParameter,
			Parameters: map[string]action.ParameterDefinition{
				"directory_path":      in,
				"file_name":           in,
				"parameter_value":     in,
				"file_extension":      in,
				"result_file_path":    out,
				"result_file_content": out,
			},
		},
		{
			Name: "create_empty_file", Func: createEmpty,
			Parameters: map[string]action.ParameterDefinition{"directory_path": in, "file_name": in, "file_path": out},
		},
	}
}

func valueOr(rc *model.RunContext, name string, idx int, def string) string {
	if v, ok := rc.Value(name, idx); ok && v != "" {
		return v
	}
	return def
}

// regularFiles lists the plain files of dir by name.
func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func readFile(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	path, _ := rc.Value("file_path", idx)
	if path == "" {
		return model.Failedf("an unexpected error occurred while converting the file path to a file string: missing file path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Failedf("an unexpected error occurred while converting the file path to a file string: %w", err)
	}
	return model.Succeeded("File string read", rc.Output("file_string", string(b), idx))
}

type fileEntry struct {
	FileID   int    `json:"file_id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}

func filesList(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	dir, _ := rc.Value("directory_path", idx)
	if dir == "" {
		return model.Failedf("an unexpected error occurred while getting the list of files from the directory: missing directory path")
	}
	names, err := regularFiles(dir)
	if err != nil {
		return model.Failedf("an unexpected error occurred while getting the list of files from the directory: %w", err)
	}
	list := make([]fileEntry, 0, len(names))
	for i, n := range names {
		list = append(list, fileEntry{FileID: i + 1, FileName: n, FilePath: filepath.Join(dir, n)})
	}
	b, err := json.Marshal(list)
	if err != nil {
		return model.Failedf("an unexpected error occurred while getting the list of files from the directory: %w", err)
	}
	return model.Succeeded("Files list read", rc.Output("files_list", string(b), idx))
}

func (p *Pack) listFiles(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	dir, _ := rc.Value("directory_path", idx)
	if dir == "" {
		return model.Failedf("an unexpected error occurred while printing the files from the directory: found no directory path to print files from")
	}
	names, err := regularFiles(dir)
	if err != nil {
		return model.Failedf("an unexpected error occurred while printing the files from the directory: %w", err)
	}
	fmt.Fprintf(p.out, "Files in the directory %s:\n\n", tui.Info(dir))
	for i, n := range names {
		fmt.Fprintln(p.out, tui.Info(fmt.Sprintf("[%d] %s", i+1, n)))
	}
	fmt.Fprintln(p.out)
	return model.Succeeded("Files printed")
}

// chooseFile resolves file_number against the numbering list_local_files
// prints.
func chooseFile(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	fail := func(err error) *model.Result {
		return model.Failedf("an unexpected error occurred while prompting the user to choose a file from the directory: %w", err)
	}
	dir, _ := rc.Value("directory_path", idx)
	if dir == "" {
		return fail(fmt.Errorf("found no directory path to choose a file from"))
	}
	names, err := regularFiles(dir)
	if err != nil {
		return fail(err)
	}
	raw, _ := rc.Value("file_number", idx)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fail(fmt.Errorf("the file_number parameter is not a valid number (%s)", raw))
	}
	if n < 1 || n > len(names) {
		return fail(fmt.Errorf("invalid file number %d", n))
	}
	return model.Succeeded("User chose a file", rc.Output("file_path", filepath.Join(dir, names[n-1]), idx))
}

// writeTimestamped writes content to <dir>/<name>_<UTC timestamp>.<ext>.
func (p *Pack) writeTimestamped(rc *model.RunContext, idx int, defName string, content []byte) (string, error) {
	dir, _ := rc.Value("directory_path", idx)
	if dir == "" {
		return "", fmt.Errorf("no directory_path provided")
	}
	name := valueOr(rc, "file_name", idx, defName)
	ext := valueOr(rc, "file_extension", idx, "json")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", name, p.now().UTC().Format(timestampLayout), ext))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	slog.Debug("stored file", "path", path)
	return path, nil
}

func (p *Pack) storeResponse(_ context.Context, last *model.Result, rc *model.RunContext, idx int) *model.Result {
	if last == nil || last.Data == nil {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: no response object provided")
	}
	var content []byte
	if text, ok := last.Data.(string); ok {
		content = []byte(text)
	} else {
		b, err := json.MarshalIndent(last.Data, "", "    ")
		if err != nil {
			return model.Failedf("an unexpected error occurred while storing the response to JSON file: %w", err)
		}
		content = b
	}
	path, err := p.writeTimestamped(rc, idx, "api_response", content)
	if err != nil {
		return model.Failedf("an unexpected error occurred while storing the response to JSON file: %w", err)
	}
	return model.Succeeded("Result stored as a JSON file",
		rc.Output("result_file_path", path, idx),
		rc.Output("result_file_content", string(content), idx),
	)
}

func (p *Pack) storeParameter(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	value, _ := rc.Value("parameter_value", idx)
	if value == "" {
		return model.Failedf("an unexpected error occurred while storing the parameter value to a file: no parameter_value provided")
	}
	path, err := p.writeTimestamped(rc, idx, "parameter_value", []byte(value))
	if err != nil {
		return model.Failedf("an unexpected error occurred while storing the parameter value to a file: %w", err)
	}
	return model.Succeeded("Parameter value stored as a file",
		rc.Output("result_file_path", path, idx),
		rc.Output("result_file_content", value, idx),
	)
}

func createEmpty(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	dir, _ := rc.Value("directory_path", idx)
	if dir == "" {
		return model.Failedf("an unexpected error occurred while creating the empty file: no directory_path provided")
	}
	path := filepath.Join(dir, valueOr(rc, "file_name", idx, "empty_file"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.Failedf("an unexpected error occurred while creating the empty file: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return model.Failedf("an unexpected error occurred while creating the empty file: %w", err)
	}
	if err := f.Close(); err != nil {
		return model.Failedf("an unexpected error occurred while creating the empty file: %w", err)
	}
	return model.Succeeded("Empty file created", rc.Output("file_path", path, idx))
}
