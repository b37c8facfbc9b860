package builder

import (
	"slices"

	"github.com/kolah/ontogen/internal/model"
	"github.com/kolah/ontogen/internal/owl"
)

// schemaIndividuals records the enum members and the object example of a
// component schema as individuals of its class.
func (b *Builder) schemaIndividuals(classID string, s *model.Schema) error {
	for _, v := range s.Enum {
		value := literal(v)
		if value == "" {
			continue
		}
		id := b.doc.UniqueID(classID+"_"+value, "individual:"+classID+"/enum/"+value)
		if _, ok := b.doc.Individual(id); ok {
			continue
		}
		if err := b.doc.AddIndividual(&owl.Individual{ID: id, Type: classID, Label: value, Value: value}); err != nil {
			return err
		}
	}

	example, ok := s.Example.(model.Object)
	if !ok {
		return nil
	}
	ind := &owl.Individual{
		ID:    b.doc.UniqueID(classID+"_example", "individual:"+classID+"/example"),
		Type:  classID,
		Label: classID + " example",
	}
	for _, f := range example {
		propID, ok := b.doc.LookupID("property:" + classID + "/" + f.Key)
		if !ok {
			continue
		}
		if p, _ := b.doc.Property(propID); p == nil || p.Kind != owl.DatatypeProperty {
			continue
		}
		ind.Values = append(ind.Values, owl.Literal{Property: propID, Value: literal(f.Value)})
	}
	return b.doc.AddIndividual(ind)
}

// exampleIndividuals records media type examples as individuals of the
// request or response class.
func (b *Builder) exampleIndividuals(classID string, examples []model.Example) error {
	for _, ex := range examples {
		if ex.Value == nil {
			continue
		}
		id := b.doc.UniqueID(classID+"_"+ex.Name, "individual:"+classID+"/example/"+ex.Name)
		if _, ok := b.doc.Individual(id); ok {
			continue
		}
		label := ex.Summary
		if label == "" {
			label = ex.Name
		}
		if err := b.doc.AddIndividual(&owl.Individual{
			ID:    id,
			Type:  classID,
			Label: label,
			Value: literal(ex.Value),
		}); err != nil {
			return err
		}
	}
	return nil
}

// modelSecurity declares one individual per security scheme and, when the
// document requires security globally, an individual linking to the
// required schemes.
func (b *Builder) modelSecurity() error {
	if len(b.spec.Security) == 0 {
		return nil
	}

	base, err := b.taxonomyClass("SecurityScheme", "")
	if err != nil {
		return err
	}

	schemes := make(map[string]string, len(b.spec.Security))
	for _, sec := range b.spec.Security {
		typeClass := base
		if sec.Type != "" {
			if typeClass, err = b.taxonomyClass(owl.PascalCase(string(sec.Type))+"SecurityScheme", "SecurityScheme"); err != nil {
				return err
			}
		}

		ind := &owl.Individual{
			ID:    b.doc.UniqueID(sec.Name, "security:"+sec.Name),
			Type:  typeClass,
			Label: sec.Name,
			Value: sec.Description,
		}
		fields := []struct{ name, value string }{
			{"type", string(sec.Type)},
			{"scheme", sec.Scheme},
			{"bearerFormat", sec.BearerFormat},
			{"in", sec.In},
			{"parameterName", sec.ParamName},
		}
		for _, f := range fields {
			if f.value == "" {
				continue
			}
			propID, err := b.datatypeProperty(base, f.name, owl.XSDString)
			if err != nil {
				return err
			}
			ind.Values = append(ind.Values, owl.Literal{Property: propID, Value: f.value})
		}
		if err := b.doc.AddIndividual(ind); err != nil {
			return err
		}
		schemes[sec.Name] = ind.ID
	}

	if len(b.spec.Requirements) == 0 {
		return nil
	}
	reqClass, err := b.taxonomyClass("SecurityRequirement", "")
	if err != nil {
		return err
	}
	requires := b.doc.UniqueID("requiresScheme", "property:"+reqClass+"/requiresScheme")
	if _, ok := b.doc.Property(requires); !ok {
		if err := b.doc.AddProperty(&owl.Property{
			ID:         requires,
			Label:      "requires scheme",
			Kind:       owl.ObjectProperty,
			Domain:     reqClass,
			RangeClass: base,
		}); err != nil {
			return err
		}
	}

	ind := &owl.Individual{
		ID:    b.doc.UniqueID("ApiSecurityRequirements", "individual:security-requirements"),
		Type:  reqClass,
		Label: "API security requirements",
	}
	for _, req := range b.spec.Requirements {
		target, ok := schemes[req.Name]
		if !ok {
			continue
		}
		link := owl.Link{Property: requires, Target: target}
		if !slices.Contains(ind.Links, link) {
			ind.Links = append(ind.Links, link)
		}
	}
	return b.doc.AddIndividual(ind)
}
