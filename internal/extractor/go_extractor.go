package extractor

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `
		(import_spec) @import
		(type_spec) @type
		(function_declaration) @func
		(method_declaration) @func
	`
}

func (g *GoExtractor) ExtractUnit(captureName string, node *sitter.Node, sourceCode []byte, filepath string, packageName string) *CodeUnit {
	var unit *CodeUnit
	switch captureName {
	case "import":
		unit = g.extractImportUnit(node, sourceCode, filepath)
	case "func":
		unit = g.extractFunctionUnit(node, sourceCode, filepath)
	case "type":
		unit = g.extractTypeUnit(node, sourceCode, filepath)
	}

	if unit != nil {
		unit.Package = packageName
		unit.Language = "go"
	}
	return unit
}

// Extraction Logic

func (g *GoExtractor) extractImportUnit(node *sitter.Node, sourceCode []byte, filepath string) *CodeUnit {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	path := strings.Trim(pathNode.Content(sourceCode), "\"`")
	details := GoImportDetails{Path: path}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		details.Alias = nameNode.Content(sourceCode)
	}

	name := details.Alias
	if name == "" {
		name = path
		if idx := strings.LastIndex(path, "/"); idx != -1 {
			name = path[idx+1:]
		}
	}

	return &CodeUnit{
		ID:        fmt.Sprintf("%s:import:%s:%d", filepath, path, node.StartPoint().Row+1),
		Filepath:  filepath,
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
		UnitType:  UnitImport,
		Name:      name,
		Details:   details,
	}
}

func (g *GoExtractor) extractTypeUnit(node *sitter.Node, sourceCode []byte, filepath string) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(sourceCode)

	// Grouped declarations carry their doc comments next to the spec itself.
	docComment := g.extractDocComment(node, sourceCode)
	parentNode := node.Parent()
	if parentNode == nil || parentNode.Type() != "type_declaration" {
		parentNode = node
	} else if docComment == "" {
		docComment = g.extractDocComment(parentNode, sourceCode)
	}
	if parentNode.NamedChildCount() > 1 {
		parentNode = node
	}

	id := fmt.Sprintf("%s:%s:%d", filepath, name, node.StartPoint().Row+1)

	var details UnitDetails
	unitType := UnitType

	typeNode := node.ChildByFieldName("type")
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			unitType = UnitStruct
			details = g.extractStructDetails(typeNode, sourceCode)
		case "interface_type":
			unitType = UnitInterface
			details = g.extractInterfaceDetails(typeNode, sourceCode)
		}
	}

	return &CodeUnit{
		ID:          id,
		Filepath:    filepath,
		StartLine:   int(parentNode.StartPoint().Row + 1),
		EndLine:     int(parentNode.EndPoint().Row + 1),
		UnitType:    unitType,
		Name:        name,
		Description: docComment,
		Details:     details,
	}
}

func (g *GoExtractor) extractStructDetails(structNode *sitter.Node, sourceCode []byte) GoTypeDetails {
	fields := []GoField{}
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return GoTypeDetails{Fields: fields}
	}

	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		fieldDecl := fieldList.NamedChild(i)
		if fieldDecl.Type() != "field_declaration" {
			continue
		}

		typeNode := fieldDecl.ChildByFieldName("type")
		var fieldType string
		if typeNode != nil {
			fieldType = typeNode.Content(sourceCode)
		}

		tagNode := fieldDecl.ChildByFieldName("tag")
		var fieldTag string
		if tagNode != nil {
			fieldTag = tagNode.Content(sourceCode)
		}

		foundNames := false
		for j := 0; j < int(fieldDecl.NamedChildCount()); j++ {
			child := fieldDecl.NamedChild(j)
			if child.Type() == "field_identifier" {
				fields = append(fields, GoField{
					Name: child.Content(sourceCode),
					Type: fieldType,
					Tag:  fieldTag,
				})
				foundNames = true
			}
		}

		if !foundNames && fieldType != "" {
			// Embedded field: the grammar keeps the optional '*' outside the type node.
			if strings.HasPrefix(strings.TrimSpace(fieldDecl.Content(sourceCode)), "*") && !strings.HasPrefix(fieldType, "*") {
				fieldType = "*" + fieldType
			}
			fields = append(fields, GoField{Name: embeddedName(fieldType), Type: fieldType, Tag: fieldTag, Embedded: true})
		}
	}
	return GoTypeDetails{Fields: fields}
}

func (g *GoExtractor) extractInterfaceDetails(interfaceNode *sitter.Node, sourceCode []byte) GoInterfaceDetails {
	details := GoInterfaceDetails{Methods: []GoFunctionDetails{}}
	for i := 0; i < int(interfaceNode.NamedChildCount()); i++ {
		n := interfaceNode.NamedChild(i)
		switch n.Type() {
		case "method_elem", "method_spec":
			method := GoFunctionDetails{
				Signature:  n.Content(sourceCode),
				Parameters: []GoParam{},
				Returns:    []GoReturn{},
			}
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				method.Name = nameNode.Content(sourceCode)
			}
			if paramsNode := n.ChildByFieldName("parameters"); paramsNode != nil {
				method.Parameters = g.extractParams(paramsNode, sourceCode)
			}
			if resultNode := n.ChildByFieldName("result"); resultNode != nil {
				method.Returns = g.extractReturns(resultNode, sourceCode)
			}
			details.Methods = append(details.Methods, method)
		case "type_elem", "type_identifier", "qualified_type":
			details.Embeds = append(details.Embeds, n.Content(sourceCode))
		}
	}
	return details
}

func (g *GoExtractor) extractFunctionUnit(node *sitter.Node, sourceCode []byte, filepath string) *CodeUnit {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(sourceCode)
	content := node.Content(sourceCode)
	id := fmt.Sprintf("%s:%s:%d", filepath, name, node.StartPoint().Row+1)

	unitType := UnitFunction
	details := GoFunctionDetails{
		Name:       name,
		Parameters: []GoParam{},
		Returns:    []GoReturn{},
	}

	if node.Type() == "method_declaration" {
		unitType = UnitMethod
		if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
			details.Receiver = receiverNode.Content(sourceCode)
			if params := g.extractParams(receiverNode, sourceCode); len(params) > 0 {
				details.ReceiverType = receiverTypeName(params[0].Type)
			}
		}
	}

	docComment := g.extractDocComment(node, sourceCode)
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		details.Parameters = g.extractParams(paramsNode, sourceCode)
	}
	if resultNode := node.ChildByFieldName("result"); resultNode != nil {
		details.Returns = g.extractReturns(resultNode, sourceCode)
	}

	bodyNode := node.ChildByFieldName("body")
	if bodyNode != nil {
		details.Signature = strings.TrimSpace(string(sourceCode[node.StartByte():bodyNode.StartByte()]))
	} else {
		details.Signature = content
	}

	return &CodeUnit{
		ID:          id,
		Filepath:    filepath,
		StartLine:   int(node.StartPoint().Row + 1),
		EndLine:     int(node.EndPoint().Row + 1),
		UnitType:    unitType,
		Name:        name,
		Description: docComment,
		Details:     details,
	}
}

func (g *GoExtractor) extractDocComment(node *sitter.Node, sourceCode []byte) string {
	var commentLines []string
	currentNode := node
	for {
		prevSibling := currentNode.PrevSibling()
		if prevSibling == nil || (currentNode.StartPoint().Row-prevSibling.EndPoint().Row > 1) {
			break
		}
		if prevSibling.Type() != "comment" {
			break
		}
		commentLines = append([]string{prevSibling.Content(sourceCode)}, commentLines...)
		currentNode = prevSibling
	}
	return cleanDocComment(strings.Join(commentLines, "\n"))
}

// extractParams walks the direct children of a parameter list. Nested func types are left alone.
func (g *GoExtractor) extractParams(paramsNode *sitter.Node, sourceCode []byte) []GoParam {
	params := []GoParam{}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		pNode := paramsNode.NamedChild(i)
		variadic := false
		switch pNode.Type() {
		case "parameter_declaration":
		case "variadic_parameter_declaration":
			variadic = true
		default:
			continue
		}

		pType := ""
		if tn := pNode.ChildByFieldName("type"); tn != nil {
			pType = tn.Content(sourceCode)
		}

		var names []string
		for j := 0; j < int(pNode.NamedChildCount()); j++ {
			child := pNode.NamedChild(j)
			if child.Type() == "identifier" {
				names = append(names, child.Content(sourceCode))
			}
		}
		if len(names) == 0 {
			params = append(params, GoParam{Type: pType, Variadic: variadic})
			continue
		}
		for _, n := range names {
			params = append(params, GoParam{Name: n, Type: pType, Variadic: variadic})
		}
	}
	return params
}

func (g *GoExtractor) extractReturns(resultNode *sitter.Node, sourceCode []byte) []GoReturn {
	returns := []GoReturn{}
	if resultNode.Type() == "parameter_list" {
		for _, p := range g.extractParams(resultNode, sourceCode) {
			returns = append(returns, GoReturn{Name: p.Name, Type: p.Type})
		}
		return returns
	}
	return append(returns, GoReturn{Type: resultNode.Content(sourceCode)})
}

// receiverTypeName turns "*Factory[T]" into "Factory".
func receiverTypeName(t string) string {
	t = strings.TrimPrefix(strings.TrimSpace(t), "*")
	if idx := strings.Index(t, "["); idx != -1 {
		t = t[:idx]
	}
	return t
}

func embeddedName(fieldType string) string {
	name := strings.TrimPrefix(fieldType, "*")
	if idx := strings.Index(name, "["); idx != -1 {
		name = name[:idx]
	}
	if lastDot := strings.LastIndex(name, "."); lastDot != -1 {
		name = name[lastDot+1:]
	}
	return name
}

func cleanDocComment(rawComment string) string {
	if rawComment == "" {
		return ""
	}
	lines := strings.Split(rawComment, "\n")
	var cleaned []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "//")
		l = strings.TrimPrefix(l, "/*")
		l = strings.TrimSuffix(l, "*/")
		cleaned = append(cleaned, strings.TrimSpace(l))
	}
	return strings.Join(cleaned, "\n")
}
