package extractor

import sitter "github.com/smacker/go-tree-sitter"

// CodeUnit is one top-level declaration of a source file.
// Description holds the raw doc comment, relay directives included.
type CodeUnit struct {
	ID          string      `json:"id"`
	Filepath    string      `json:"filepath"`
	Package     string      `json:"package"`
	Language    string      `json:"language"`
	StartLine   int         `json:"start_line"`
	EndLine     int         `json:"end_line"`
	UnitType    string      `json:"unit_type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Details     UnitDetails `json:"details"`
}

// UnitDetails is implemented by the Go*Details types.
type UnitDetails interface {
	unitDetails()
}

func (GoImportDetails) unitDetails()    {}
func (GoFunctionDetails) unitDetails()  {}
func (GoTypeDetails) unitDetails()      {}
func (GoInterfaceDetails) unitDetails() {}

// LanguageExtractor turns tree-sitter query captures into code units.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	GetQuery() string
	ExtractUnit(captureName string, node *sitter.Node, sourceCode []byte, filepath string, packageName string) *CodeUnit
}
