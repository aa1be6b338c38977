// Package shape extracts structural schemas from XML and JSON bodies.
package shape

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/usestring/flowschema/pkg/schema"
)

// ErrNoRootElement is returned when an XML document has no single root element.
var ErrNoRootElement = errors.New("xml document has no single root element")

// Classifier infers the type of a textual value. schema.Classify satisfies it;
// callers may pass a memoizing wrapper.
type Classifier func(string) schema.Type

// ExtractXML parses an XML body and returns its structure keyed by the root
// tag name:
//
//	{root: {properties: {attr: type, ...}, child: {...}, ...}}
//
// Attribute values are classified into the reserved "properties" object,
// which is always present. Only the first child element per tag is kept.
// Element text is not classified.
func ExtractXML(body []byte, classify Classifier) (*schema.Node, error) {
	if classify == nil {
		classify = schema.Classify
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	root, err := documentRoot(doc)
	if err != nil {
		return nil, err
	}

	return schema.Object(map[string]*schema.Node{
		elementName(root): extractElement(root, classify),
	}), nil
}

// documentRoot returns the single root element. Text outside it, or a second
// top-level element, makes the document invalid.
func documentRoot(doc *xmlquery.Node) (*xmlquery.Node, error) {
	var root *xmlquery.Node
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.ElementNode:
			if root != nil {
				return nil, fmt.Errorf("%w: junk after document element <%s>", ErrNoRootElement, elementName(root))
			}
			root = n
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil, fmt.Errorf("%w: text outside root element", ErrNoRootElement)
			}
		}
	}
	if root == nil {
		return nil, ErrNoRootElement
	}
	return root, nil
}

// extractElement converts one element into an object node.
func extractElement(elem *xmlquery.Node, classify Classifier) *schema.Node {
	properties := make(map[string]*schema.Node, len(elem.Attr))
	for _, attr := range elem.Attr {
		if isNamespaceDecl(attr) {
			continue
		}
		properties[attrName(attr)] = schema.Leaf(classify(attr.Value))
	}

	fields := map[string]*schema.Node{
		schema.PropertiesKey: schema.Object(properties),
	}
	for child := elem.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		name := elementName(child)
		// Later siblings with the same tag are reconciled across flows by the
		// merger, not within one document.
		if _, exists := fields[name]; exists {
			continue
		}
		fields[name] = extractElement(child, classify)
	}

	return schema.Object(fields)
}

func elementName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

// attrName keeps a prefix only when it is not a resolved namespace URI.
func attrName(attr xmlquery.Attr) string {
	space := attr.Name.Space
	if space != "" && !strings.HasPrefix(space, "http://") && !strings.HasPrefix(space, "https://") && !strings.HasPrefix(space, "urn:") {
		return space + ":" + attr.Name.Local
	}
	return attr.Name.Local
}

func isNamespaceDecl(attr xmlquery.Attr) bool {
	return attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
}
