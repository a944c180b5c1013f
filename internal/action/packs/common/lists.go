package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tidwall/gjson"

	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

const (
	defaultListLimit       = 10
	defaultLoopAlternative = "Continue searching"
)

func text(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Raw
}

// jsonList parses the JSON array held by the named parameter.
func jsonList(rc *model.RunContext, name string, idx int) ([]gjson.Result, error) {
	doc, ok := rc.Value(name, idx)
	if !ok || doc == "" {
		return nil, fmt.Errorf("found no items in %s", name)
	}
	parsed := gjson.Parse(doc)
	if !gjson.Valid(doc) || !parsed.IsArray() {
		return nil, fmt.Errorf("%s is not a JSON list", name)
	}
	return parsed.Array(), nil
}

func intValue(rc *model.RunContext, name string, idx, def int) (int, error) {
	v, ok := rc.Value(name, idx)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("the %s parameter is not a valid number (%s)", name, v)
	}
	return n, nil
}

func boolValue(rc *model.RunContext, name string, idx int) bool {
	v, _ := rc.Value(name, idx)
	b, _ := strconv.ParseBool(v)
	return b
}

func fieldList(rc *model.RunContext, idx int) []string {
	v, _ := rc.Value("list_node_fields", idx)
	if v == "" {
		return nil
	}
	fields := strings.Split(v, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func columnTitle(field string) string {
	t := strings.ReplaceAll(field, "_", " ")
	if t == "" {
		return t
	}
	return strings.ToUpper(t[:1]) + t[1:]
}

func cells(item gjson.Result, fields []string) []string {
	if len(fields) == 0 {
		return []string{text(item)}
	}
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = text(item.Get(f))
	}
	return row
}

// renderList writes title, a table of at most limit items and a caption
// when items were left out. indexed adds a 1-based choice column.
func (p *Pack) renderList(title string, items []gjson.Result, fields []string, limit int, indexed bool, alternative string) {
	headers := []string{"Item"}
	if len(fields) > 0 {
		headers = make([]string, len(fields))
		for i, f := range fields {
			headers[i] = columnTitle(f)
		}
	}
	if indexed {
		headers = append([]string{"Choice ID"}, headers...)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for i, item := range items {
		if i >= limit {
			break
		}
		row := cells(item, fields)
		if indexed {
			row = append([]string{strconv.Itoa(i + 1)}, row...)
		}
		t.Row(row...)
	}
	if alternative != "" {
		row := make([]string, len(headers))
		row[0], row[1] = "0", alternative
		t.Row(row...)
	}

	fmt.Fprintln(p.out, tui.Title(title))
	fmt.Fprintln(p.out, t.String())
	if len(items) > limit {
		fmt.Fprintln(p.out, tui.Help(fmt.Sprintf("Note: Only showing the first %d of %d items", limit, len(items))))
	}
}

func (p *Pack) listArrayWithIndexes(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	items, err := jsonList(rc, "item_list", idx)
	if err != nil {
		return model.Failedf("an unexpected error occurred while printing the items from the list: %w", err)
	}
	limit, err := intValue(rc, "item_limit", idx, defaultListLimit)
	if err != nil {
		return model.Failedf("an unexpected error occurred while printing the items from the list: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(p.out, tui.Info("The item list is empty / No results"))
		return model.Succeeded("Items printed")
	}

	title := "Items in the list"
	if list, ok := rc.Lookup(rc.BoundName("item_list", idx)); ok && list.CustomText != "" {
		title = list.CustomText
	}
	var alternative string
	if boolValue(rc, "show_loop_alternative", idx) {
		alternative, _ = rc.Value("loop_alternative_text", idx)
		if alternative == "" {
			alternative = defaultLoopAlternative
		}
	}
	p.renderList(title, items, fieldList(rc, idx), limit, true, alternative)
	return model.Succeeded("Items printed")
}

// chooseIndexedItem picks the item_number'th entry (1-based) of item_list.
// With show_loop_alternative, 0 asks for another pass of the enclosing loop
// and any real choice ends it.
func chooseIndexedItem(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	fail := func(err error) *model.Result {
		return model.Failedf("an unexpected error occurred while prompting the user to choose an item from the list: %w", err)
	}
	items, err := jsonList(rc, "item_list", idx)
	if err != nil {
		return fail(err)
	}
	raw, ok := rc.Value("item_number", idx)
	if !ok || raw == "" {
		return fail(fmt.Errorf("found no chosen item number"))
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fail(fmt.Errorf("the item_number parameter is not a valid number (%s)", raw))
	}

	alternative := boolValue(rc, "show_loop_alternative", idx)
	if alternative && n == 0 {
		return model.Succeeded("User chose to continue searching").WithRepeatLoop(true)
	}
	if n < 1 || n > len(items) {
		return fail(fmt.Errorf("item number out of range (%d/%d)", n, len(items)))
	}

	chosen := items[n-1]
	if field, _ := rc.Value("item_node_value", idx); field != "" && field != "." {
		chosen = chosen.Get(field)
		if !chosen.Exists() {
			return fail(fmt.Errorf("the chosen item has no field %s", field))
		}
	}
	res := model.Succeeded("User chose an item", rc.Output("chosen_item_value", text(chosen), idx))
	if alternative {
		res.WithRepeatLoop(false)
	}
	return res
}

func (p *Pack) printSimpleJSONList(_ context.Context, _ *model.Result, rc *model.RunContext, idx int) *model.Result {
	items, err := jsonList(rc, "json_list", idx)
	if err != nil {
		return model.Failedf("an unexpected error occurred while printing the JSON list: %w", err)
	}
	limit, err := intValue(rc, "list_limit", idx, defaultListLimit)
	if err != nil {
		return model.Failedf("an unexpected error occurred while printing the JSON list: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(p.out, tui.Info("The JSON list is empty / No results"))
		return model.Succeeded("JSON list printed")
	}
	title, _ := rc.Value("list_text", idx)
	if title == "" {
		title = "Items in the list"
	}
	p.renderList(title, items, fieldList(rc, idx), limit, false, "")
	return model.Succeeded("JSON list printed")
}
