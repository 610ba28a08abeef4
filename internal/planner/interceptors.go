package planner

import (
	"relaygen/internal/discovery"
	"relaygen/internal/graph"
)

// InterceptorSet is the hooks applied to a freshly constructed instance, in field order.
// Object and Void are never both set.
type InterceptorSet struct {
	Exact  *discovery.Hook `json:"exact,omitempty"`
	Object *discovery.Hook `json:"object,omitempty"`
	Void   *discovery.Hook `json:"void,omitempty"`
}

// ExactAssigns reports whether the exact hook's result replaces the instance.
func (s InterceptorSet) ExactAssigns() bool {
	return s.Exact != nil && s.Exact.Result != nil
}

func (s InterceptorSet) Empty() bool {
	return s.Exact == nil && s.Object == nil && s.Void == nil
}

// BindInterceptors picks the hooks for one produced type.
func BindInterceptors(hooks []discovery.Hook, produced graph.TypeRef) InterceptorSet {
	var set InterceptorSet

	for i := range hooks {
		h := &hooks[i]
		if h.Result != nil && h.Result.Same(produced) && (h.Param.Same(produced) || h.Param.IsAny()) {
			set.Exact = h
			break
		}
	}
	if set.Exact == nil {
		for i := range hooks {
			h := &hooks[i]
			if h.Result == nil && h.Param.Same(produced) {
				set.Exact = h
				break
			}
		}
	}

	for i := range hooks {
		h := &hooks[i]
		if h.Param.IsAny() && h.Result != nil && h.Result.IsAny() {
			set.Object = h
			return set
		}
	}
	for i := range hooks {
		h := &hooks[i]
		if h.Param.IsAny() && h.Result == nil {
			set.Void = h
			break
		}
	}
	return set
}
