package owl

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	// ErrDuplicateID is returned when a node is added under an identifier
	// that is already taken.
	ErrDuplicateID = errors.New("duplicate identifier")
	// ErrUnknownClass is returned when a property domain/range or an
	// individual type names a class that does not exist yet.
	ErrUnknownClass = errors.New("unknown class")
)

// Document is the format-agnostic ontology graph. It owns every node; the
// renderers walk its collections in creation order.
type Document struct {
	BaseURI     string
	VersionURI  string
	Title       string
	Description string
	Version     string
	Created     time.Time
	License     string
	SeeAlso     string
	Prefixes    []Prefix

	Classes            []*Class
	ObjectProperties   []*Property
	DatatypeProperties []*Property
	Individuals        []*Individual

	classes     map[string]*Class
	properties  map[string]*Property
	individuals map[string]*Individual

	// identifier registry
	owners map[string]string // logical owner -> identifier
	taken  map[string]string // identifier -> logical owner
}

// NewDocument creates an empty document rooted at baseURI.
func NewDocument(baseURI string) *Document {
	baseURI = strings.TrimRight(baseURI, "#")
	d := &Document{
		BaseURI:     baseURI,
		License:     LicenseCCBY,
		classes:     make(map[string]*Class),
		properties:  make(map[string]*Property),
		individuals: make(map[string]*Individual),
		owners:      make(map[string]string),
		taken:       make(map[string]string),
	}
	d.Prefixes = DefaultPrefixes(d.Namespace())
	return d
}

// Namespace returns the IRI prefix used for every node identifier.
func (d *Document) Namespace() string {
	if strings.HasSuffix(d.BaseURI, "/") {
		return d.BaseURI
	}
	return d.BaseURI + "#"
}

// IRI returns the absolute IRI of a node identifier.
func (d *Document) IRI(id string) string {
	return d.Namespace() + id
}

// UniqueID returns the identifier registered for owner, allocating one from
// the sanitized base on first use. A different owner whose base collides is
// given base_2, base_3, ... in allocation order.
func (d *Document) UniqueID(base, owner string) string {
	if id, ok := d.owners[owner]; ok {
		return id
	}
	id := Sanitize(base)
	candidate := id
	for n := 2; ; n++ {
		if _, taken := d.taken[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s_%d", id, n)
	}
	d.owners[owner] = candidate
	d.taken[candidate] = owner
	return candidate
}

// LookupID returns the identifier already registered for owner.
func (d *Document) LookupID(owner string) (string, bool) {
	id, ok := d.owners[owner]
	return id, ok
}

func (d *Document) nodeExists(id string) bool {
	if _, ok := d.classes[id]; ok {
		return true
	}
	if _, ok := d.properties[id]; ok {
		return true
	}
	_, ok := d.individuals[id]
	return ok
}

// Class returns the class with the given identifier.
func (d *Document) Class(id string) (*Class, bool) {
	c, ok := d.classes[id]
	return c, ok
}

// Property returns the object or datatype property with the given identifier.
func (d *Document) Property(id string) (*Property, bool) {
	p, ok := d.properties[id]
	return p, ok
}

// Individual returns the individual with the given identifier.
func (d *Document) Individual(id string) (*Individual, bool) {
	i, ok := d.individuals[id]
	return i, ok
}

// AddClass appends a class. Superclasses must already exist.
func (d *Document) AddClass(c *Class) error {
	if d.nodeExists(c.ID) {
		return fmt.Errorf("%w: class %s", ErrDuplicateID, c.ID)
	}
	for _, sc := range c.SuperClasses {
		if _, ok := d.classes[sc]; !ok {
			return fmt.Errorf("%w: superclass %s of %s", ErrUnknownClass, sc, c.ID)
		}
	}
	d.classes[c.ID] = c
	d.Classes = append(d.Classes, c)
	return nil
}

// AddProperty appends a property. Its domain, and for object properties its
// range, must already be declared.
func (d *Document) AddProperty(p *Property) error {
	if d.nodeExists(p.ID) {
		return fmt.Errorf("%w: property %s", ErrDuplicateID, p.ID)
	}
	if _, ok := d.classes[p.Domain]; !ok {
		return fmt.Errorf("%w: domain %s of %s", ErrUnknownClass, p.Domain, p.ID)
	}
	if p.Kind == ObjectProperty {
		if _, ok := d.classes[p.RangeClass]; !ok {
			return fmt.Errorf("%w: range %s of %s", ErrUnknownClass, p.RangeClass, p.ID)
		}
		d.ObjectProperties = append(d.ObjectProperties, p)
	} else {
		d.DatatypeProperties = append(d.DatatypeProperties, p)
	}
	d.properties[p.ID] = p
	return nil
}

// AddIndividual appends an individual whose type must already be declared.
func (d *Document) AddIndividual(i *Individual) error {
	if d.nodeExists(i.ID) {
		return fmt.Errorf("%w: individual %s", ErrDuplicateID, i.ID)
	}
	if _, ok := d.classes[i.Type]; !ok {
		return fmt.Errorf("%w: type %s of %s", ErrUnknownClass, i.Type, i.ID)
	}
	d.individuals[i.ID] = i
	d.Individuals = append(d.Individuals, i)
	return nil
}

// Annotation is a key/value annotation on a class or property.
type Annotation struct {
	Key   AnnotationKey
	Value string
}

// Class is an owl:Class node.
type Class struct {
	ID           string
	Label        string
	Comment      string
	SuperClasses []string
	Annotations  []Annotation
}

// AddSuperClass records a superclass once.
func (c *Class) AddSuperClass(id string) {
	if id == "" || id == c.ID || slices.Contains(c.SuperClasses, id) {
		return
	}
	c.SuperClasses = append(c.SuperClasses, id)
}

// Annotate appends an annotation, skipping empty values and exact repeats.
func (c *Class) Annotate(key AnnotationKey, value string) {
	c.Annotations = appendAnnotation(c.Annotations, key, value)
}

// PropertyKind distinguishes object properties from datatype properties.
type PropertyKind int

const (
	ObjectProperty PropertyKind = iota
	DatatypeProperty
)

func (k PropertyKind) String() string {
	if k == ObjectProperty {
		return "ObjectProperty"
	}
	return "DatatypeProperty"
}

// Property is an owl:ObjectProperty or owl:DatatypeProperty node.
type Property struct {
	ID          string
	Label       string
	Comment     string
	Kind        PropertyKind
	Domain      string
	RangeClass  string   // object properties
	RangeType   Datatype // datatype properties
	Required    bool
	Collection  bool
	Functional  bool
	InverseOf   string
	Annotations []Annotation
}

// Annotate appends an annotation, skipping empty values and exact repeats.
func (p *Property) Annotate(key AnnotationKey, value string) {
	p.Annotations = appendAnnotation(p.Annotations, key, value)
}

// Literal is a literal value of an individual.
type Literal struct {
	Property string
	Value    string
}

// Link relates an individual to another node.
type Link struct {
	Property string
	Target   string
}

// Individual is an owl:NamedIndividual node.
type Individual struct {
	ID     string
	Type   string
	Label  string
	Value  string
	Values []Literal
	Links  []Link
}

func appendAnnotation(list []Annotation, key AnnotationKey, value string) []Annotation {
	if value == "" {
		return list
	}
	a := Annotation{Key: key, Value: value}
	if slices.Contains(list, a) {
		return list
	}
	return append(list, a)
}
