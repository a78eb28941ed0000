package tgroute

import (
	"regexp"
	"sort"
)

// messageIndex routes one message-like category.
type messageIndex struct {
	any *Handler
	and []*Handler
	or  map[Field][]*Handler
}

// regexRoute is one pattern of a regex callback handler.
type regexRoute struct {
	pattern *regexp.Regexp
	handler *Handler
}

// callbackIndex routes callback queries.
type callbackIndex struct {
	exact     map[string]*Handler
	named     map[string]*Handler
	regex     []regexRoute
	predicate []*Handler
	any       *Handler
}

// routeTable indexes handlers by category and match strategy. It is not
// safe for concurrent use; Router guards it.
type routeTable struct {
	messages   map[Category]*messageIndex
	commands   map[string]*Handler
	callbacks  callbackIndex
	forceReply map[string]*Handler
	singletons map[Category]*Handler
}

func newRouteTable() *routeTable {
	return &routeTable{
		messages:   make(map[Category]*messageIndex),
		commands:   make(map[string]*Handler),
		forceReply: make(map[string]*Handler),
		singletons: make(map[Category]*Handler),
		callbacks: callbackIndex{
			exact: make(map[string]*Handler),
			named: make(map[string]*Handler),
		},
	}
}

func (t *routeTable) messageIndex(c Category) *messageIndex {
	idx, ok := t.messages[c]
	if !ok {
		idx = &messageIndex{or: make(map[Field][]*Handler)}
		t.messages[c] = idx
	}
	return idx
}

// register inserts h. A handler with the same name in the same category is
// removed first. It returns the handlers that h displaced from a single slot
// (match-any, singleton, command token, exact payload, force-reply name);
// the caller reports them. Replacing a same-name entry of a list index
// (AND, OR, regex, predicate) displaces nothing.
func (t *routeTable) register(h *Handler) []*Handler {
	var displaced []*Handler
	if old := t.occupant(h.Name, h.Category); old != nil {
		displaced = append(displaced, old)
	}
	t.remove(h.Name, h.Category)
	replace := func(old *Handler) {
		if old != nil {
			displaced = append(displaced, old)
		}
	}

	switch {
	case h.Category.messageLike():
		idx := t.messageIndex(h.Category)
		switch {
		case len(h.AllOf) > 0:
			idx.and = append(idx.and, h)
		case len(h.AnyOf) > 0:
			for _, f := range NewFieldSet(h.AnyOf...).Fields() {
				idx.or[f] = append(idx.or[f], h)
			}
		default:
			replace(idx.any)
			idx.any = h
		}

	case h.Category == Command:
		for _, token := range h.Commands {
			token = normalizeCommand(token)
			replace(t.commands[token])
			t.commands[token] = h
		}

	case h.Category == CallbackQuery:
		cb := &t.callbacks
		for _, data := range h.Callback.Data {
			replace(cb.exact[data])
			cb.exact[data] = h
		}
		if h.Callback.Named {
			replace(cb.named[h.Name])
			cb.named[h.Name] = h
		}
		for _, p := range h.Callback.Patterns {
			cb.regex = append(cb.regex, regexRoute{pattern: p, handler: h})
		}
		if h.Callback.Predicate != nil {
			cb.predicate = append(cb.predicate, h)
		}
		if h.Callback.Any {
			replace(cb.any)
			cb.any = h
		}

	case h.Category == ForceReply:
		replace(t.forceReply[h.Name])
		t.forceReply[h.Name] = h

	case h.Category.singleton():
		replace(t.singletons[h.Category])
		t.singletons[h.Category] = h
	}
	return displaced
}

// occupant returns the handler named name that holds a single-handler slot
// of category c, or nil.
func (t *routeTable) occupant(name string, c Category) *Handler {
	named := func(h *Handler) bool { return h != nil && h.Name == name }
	inMap := func(m map[string]*Handler) *Handler {
		for _, h := range m {
			if named(h) {
				return h
			}
		}
		return nil
	}

	switch {
	case c.messageLike():
		if idx, ok := t.messages[c]; ok && named(idx.any) {
			return idx.any
		}
	case c == Command:
		return inMap(t.commands)
	case c == CallbackQuery:
		cb := &t.callbacks
		if h := inMap(cb.exact); h != nil {
			return h
		}
		if h := cb.named[name]; named(h) {
			return h
		}
		if named(cb.any) {
			return cb.any
		}
	case c == ForceReply:
		if h := t.forceReply[name]; named(h) {
			return h
		}
	case c.singleton():
		if h := t.singletons[c]; named(h) {
			return h
		}
	}
	return nil
}

// remove deletes every entry of the named handler in category c and
// reports whether anything was removed.
func (t *routeTable) remove(name string, c Category) bool {
	removed := false
	drop := func(hs []*Handler) []*Handler {
		out := hs[:0]
		for _, h := range hs {
			if h.Name == name {
				removed = true
				continue
			}
			out = append(out, h)
		}
		return out
	}
	dropKeys := func(m map[string]*Handler) {
		for k, h := range m {
			if h.Name == name {
				delete(m, k)
				removed = true
			}
		}
	}

	switch {
	case c.messageLike():
		idx, ok := t.messages[c]
		if !ok {
			return false
		}
		if idx.any != nil && idx.any.Name == name {
			idx.any = nil
			removed = true
		}
		idx.and = drop(idx.and)
		for f, hs := range idx.or {
			if idx.or[f] = drop(hs); len(idx.or[f]) == 0 {
				delete(idx.or, f)
			}
		}

	case c == Command:
		dropKeys(t.commands)

	case c == CallbackQuery:
		cb := &t.callbacks
		dropKeys(cb.exact)
		dropKeys(cb.named)
		regex := cb.regex[:0]
		for _, r := range cb.regex {
			if r.handler.Name == name {
				removed = true
				continue
			}
			regex = append(regex, r)
		}
		cb.regex = regex
		cb.predicate = drop(cb.predicate)
		if cb.any != nil && cb.any.Name == name {
			cb.any = nil
			removed = true
		}

	case c == ForceReply:
		dropKeys(t.forceReply)

	case c.singleton():
		if h, ok := t.singletons[c]; ok && h.Name == name {
			delete(t.singletons, c)
			removed = true
		}
	}
	return removed
}

// lookupCommand returns the handler for a normalised token, falling back to
// the wildcard command handler.
func (t *routeTable) lookupCommand(token string) *Handler {
	if h, ok := t.commands[token]; ok {
		return h
	}
	return t.commands[AnyCommand]
}

// lookupMessageCandidates returns, in invocation order, the match-any
// handler, the AND handlers whose fields are all present, then the OR
// handlers for each present field. A handler appears at most once.
func (t *routeTable) lookupMessageCandidates(c Category, present FieldSet) []*Handler {
	idx, ok := t.messages[c]
	if !ok {
		return nil
	}
	var out []*Handler
	if idx.any != nil {
		out = append(out, idx.any)
	}
	for _, h := range idx.and {
		if present.Contains(NewFieldSet(h.AllOf...)) {
			out = append(out, h)
		}
	}
	seen := make(map[*Handler]struct{})
	for _, f := range present.Fields() {
		for _, h := range idx.or[f] {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out
}

// callbackCandidates is a snapshot of the callback index taken for one
// dispatch.
type callbackCandidates struct {
	exact     *Handler
	named     map[string]*Handler
	regex     []regexRoute
	predicate []*Handler
	any       *Handler
}

func (t *routeTable) lookupCallbackQuery(data string) callbackCandidates {
	cb := t.callbacks
	named := make(map[string]*Handler, len(cb.named))
	for k, h := range cb.named {
		named[k] = h
	}
	return callbackCandidates{
		exact:     cb.exact[data],
		named:     named,
		regex:     append([]regexRoute(nil), cb.regex...),
		predicate: append([]*Handler(nil), cb.predicate...),
		any:       cb.any,
	}
}

func (t *routeTable) lookupSingleton(c Category) *Handler {
	return t.singletons[c]
}

func (t *routeTable) lookupForceReply(name string) *Handler {
	return t.forceReply[name]
}

// commandTokens returns registered tokens, sorted.
func (t *routeTable) commandTokens() []string {
	out := make([]string, 0, len(t.commands))
	for token := range t.commands {
		if token == AnyCommand {
			continue
		}
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
