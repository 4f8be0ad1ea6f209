package schema

// ReverseRelation is the reverse side of a relation declared on another model
type ReverseRelation struct {
	// Name is the query name on the target: the related name, or the source model name
	Name   string
	Kind   RelationKind
	Source *Model
	Field  *Relation
}

// ReverseRelations returns the relations of other models that point to m, in registration
// order. Relations declared on auto-created link models and relations whose related name
// ends with "+" are hidden. Proxy models share the reverse relations of their concrete model.
func (r *Registry) ReverseRelations(m *Model) []*ReverseRelation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := map[*Model]bool{m: true}
	if m.Proxy {
		for _, p := range m.parents {
			if !p.Abstract {
				targets[p] = true
			}
		}
	}

	reverse := make([]*ReverseRelation, 0)
	for _, src := range r.order {
		if src.Abstract || src.AutoCreated {
			continue
		}
		for _, rel := range src.Relations {
			// Inherited relations are reported once, on the declaring model
			if rel.origin != src || rel.Hidden() {
				continue
			}
			target, ok := r.resolve(src, rel.To)
			if !ok || !targets[target] {
				continue
			}
			name := rel.RelatedName
			if name == "" {
				name = src.ModelName()
			}
			reverse = append(reverse, &ReverseRelation{
				Name:   name,
				Kind:   rel.Kind,
				Source: src,
				Field:  rel,
			})
		}
	}
	return reverse
}

// DependencyOrder returns the visible models ordered so that every model comes after the
// models its foreign keys and one-to-one relations point to. Cycles are broken in
// registration order.
func (r *Registry) DependencyOrder() []*Model {
	models := r.Models()

	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[*Model]bool, len(models))
	onStack := make(map[*Model]bool)
	ordered := make([]*Model, 0, len(models))

	var visit func(m *Model)
	visit = func(m *Model) {
		if visited[m] || onStack[m] {
			return
		}
		onStack[m] = true
		for _, rel := range m.Relations {
			if rel.Kind == RelationManyToMany {
				continue
			}
			if target, ok := r.resolve(rel.Owner(m), rel.To); ok && target != m && !target.Abstract {
				visit(target)
			}
		}
		onStack[m] = false
		visited[m] = true
		if !m.AutoCreated {
			ordered = append(ordered, m)
		}
	}

	for _, m := range models {
		visit(m)
	}
	return ordered
}
