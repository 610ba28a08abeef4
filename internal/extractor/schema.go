package extractor

// Unit types produced by the Go extractor.
const (
	UnitImport    = "import"
	UnitStruct    = "struct"
	UnitInterface = "interface"
	UnitType      = "type"
	UnitFunction  = "function"
	UnitMethod    = "method"
)

// GoImportDetails describes one import spec of a file.
type GoImportDetails struct {
	Alias string `json:"alias,omitempty"` // explicit name, "." or "_"
	Path  string `json:"path"`
}

// GoFunctionDetails contains specific information about a function or method.
type GoFunctionDetails struct {
	Name         string     `json:"name,omitempty"`
	Receiver     string     `json:"receiver,omitempty"`      // e.g. "(f *Factory)"
	ReceiverType string     `json:"receiver_type,omitempty"` // e.g. "Factory"
	Parameters   []GoParam  `json:"parameters"`
	Returns      []GoReturn `json:"returns"`
	Signature    string     `json:"signature"`
}

// GoTypeDetails contains the fields of a struct.
type GoTypeDetails struct {
	Fields []GoField `json:"fields"`
}

// GoInterfaceDetails contains the method set and embedded types of an interface.
type GoInterfaceDetails struct {
	Methods []GoFunctionDetails `json:"methods"`
	Embeds  []string            `json:"embeds,omitempty"`
}

// GoParam represents a single function or method parameter.
type GoParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Variadic bool   `json:"variadic,omitempty"`
}

// GoReturn represents a single return value.
type GoReturn struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// GoField represents a struct field. Embedded fields carry the type name as Name.
type GoField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Tag      string `json:"tag,omitempty"`
	Embedded bool   `json:"embedded,omitempty"`
}
