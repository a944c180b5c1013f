package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

func contextOf(kv ...string) *model.RunContext {
	rc := model.NewRunContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rc.Put(model.NewParameter(kv[i], kv[i+1], 0))
	}
	return rc
}

func outputs(res *model.Result) map[string]string {
	m := make(map[string]string)
	for _, p := range res.Parameters {
		m[p.Name] = p.Text()
	}
	return m
}

// seed creates b.txt, a.txt and a subdirectory that listings must ignore.
func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("bee"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("ay"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	return dir
}

func TestRegisters(t *testing.T) {
	reg := action.NewRegistry()
	require.NoError(t, reg.Register(New(io.Discard)))
	assert.Len(t, reg.Functions(), 7)
}

func TestFilesListAndChoose(t *testing.T) {
	dir := seed(t)

	res := filesList(context.Background(), nil, contextOf("directory_path", dir), 0)
	require.True(t, res.Success, res.Message)
	want := `[{"file_id":1,"file_name":"a.txt","file_path":"` + filepath.Join(dir, "a.txt") +
		`"},{"file_id":2,"file_name":"b.txt","file_path":"` + filepath.Join(dir, "b.txt") + `"}]`
	assert.JSONEq(t, want, outputs(res)["files_list"])

	res = chooseFile(context.Background(), nil, contextOf("directory_path", dir, "file_number", "2"), 0)
	require.True(t, res.Success, res.Message)
	path := outputs(res)["file_path"]
	assert.Equal(t, filepath.Join(dir, "b.txt"), path)

	res = readFile(context.Background(), nil, contextOf("file_path", path), 0)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "bee", outputs(res)["file_string"])

	for _, n := range []string{"0", "3", "x"} {
		res = chooseFile(context.Background(), nil, contextOf("directory_path", dir, "file_number", n), 0)
		assert.False(t, res.Success, n)
	}
}

func TestListFiles(t *testing.T) {
	dir := seed(t)
	var out strings.Builder
	res := New(&out).listFiles(context.Background(), nil, contextOf("directory_path", dir), 0)
	require.True(t, res.Success, res.Message)
	assert.Contains(t, out.String(), "[1] a.txt")
	assert.Contains(t, out.String(), "[2] b.txt")
	assert.NotContains(t, out.String(), "] sub")
}

func TestStoreTimestamped(t *testing.T) {
	dir := t.TempDir()
	p := New(io.Discard)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC) }

	res := p.storeResponse(context.Background(), &model.Result{Data: map[string]any{"id": 1}}, contextOf("directory_path", dir), 0)
	require.True(t, res.Success, res.Message)
	got := outputs(res)
	assert.Equal(t, filepath.Join(dir, "api_response_2024-03-01_10-20-30.json"), got["result_file_path"])
	assert.JSONEq(t, `{"id":1}`, got["result_file_content"])

	res = p.storeParameter(context.Background(), nil,
		contextOf("directory_path", dir, "file_name", "note", "file_extension", "txt", "parameter_value", "hello"), 0)
	require.True(t, res.Success, res.Message)
	want := map[string]string{
		"result_file_path":    filepath.Join(dir, "note_2024-03-01_10-20-30.txt"),
		"result_file_content": "hello",
	}
	if diff := cmp.Diff(want, outputs(res)); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	b, err := os.ReadFile(want["result_file_path"])
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	res = p.storeResponse(context.Background(), nil, contextOf("directory_path", dir), 0)
	assert.False(t, res.Success)
}

func TestCreateEmptyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	res := createEmpty(context.Background(), nil, contextOf("directory_path", dir), 0)
	require.True(t, res.Success, res.Message)
	info, err := os.Stat(filepath.Join(dir, "empty_file"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	res = createEmpty(context.Background(), nil, contextOf(), 0)
	assert.False(t, res.Success)
}
