package config

import (
	"github.com/gyaneshwarpardhi/omtree/internal/action"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
)

const (
	apiDefinitionsDir = "api_definitions"
	operationMenusDir = "operation_menus"
	treeBaseName      = "om_tree"
	envFile           = ".env"
	// workspaceVariable expands to the parent of the custom path inside tree
	// custom_variables.
	workspaceVariable = "WORKSPACE"
)

var documentExts = []string{".yaml", ".yml", ".json"}

// Options locates the documents of one session.
type Options struct {
	// CustomPath holds api_definitions/, optionally operation_menus/om_tree.*
	// and a .env file.
	CustomPath string
	// TreePath overrides the tree found under CustomPath.
	TreePath string
	// MockPath, when set, names a mock response document.
	MockPath string
	// Check gates reloads: a reloaded tree replaces the current one only when
	// Check accepts it.
	Check func(*model.Tree) error
}

// Bundle is everything loaded at startup.
type Bundle struct {
	Tree     *model.Tree
	TreePath string
	APIs     []*action.APIDefinition
	// Mocks maps fully substituted URLs to canned bodies; nil when no mock
	// document was given.
	Mocks map[string]any
}
