package viewer

import (
	"sort"

	"nvsview/internal/types"
)

// Registry holds every line and note fetched so far plus the skeleton of
// the whole play. It does no I/O and is only touched from the loop.
type Registry struct {
	stubs    []types.LineStub
	stubByNo map[int]types.LineStub
	noByID   map[string]int

	lines      map[string]*types.Line
	registered map[int]struct{}
	notes      map[string]*types.Note

	lowest  int
	highest int

	actScenes []string
}

func NewRegistry() *Registry {
	return &Registry{
		stubByNo:   map[int]types.LineStub{},
		noByID:     map[string]int{},
		lines:      map[string]*types.Line{},
		registered: map[int]struct{}{},
		notes:      map[string]*types.Note{},
	}
}

// LoadSkeleton records the stub of every line in the play. Bounds and the
// act/scene list come from here.
func (r *Registry) LoadSkeleton(stubs []types.LineStub) {
	sorted := append([]types.LineStub(nil), stubs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LineNumber < sorted[j].LineNumber })

	r.stubs = sorted
	r.stubByNo = make(map[int]types.LineStub, len(sorted))
	r.noByID = make(map[string]int, len(sorted))
	r.actScenes = r.actScenes[:0]
	seen := map[string]struct{}{}
	for _, stub := range sorted {
		r.stubByNo[stub.LineNumber] = stub
		r.noByID[stub.ID] = stub.LineNumber
		key := stub.ActScene()
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			r.actScenes = append(r.actScenes, key)
		}
	}
	if len(sorted) > 0 {
		r.lowest = sorted[0].LineNumber
		r.highest = sorted[len(sorted)-1].LineNumber
	}
}

// Register merges fetched lines and notes and returns the ordinals that
// were not registered before, ascending. Known lines are left untouched;
// note linkage is applied on every call and skipped for absent lines.
func (r *Registry) Register(lines []*types.Line, notes []*types.Note) []int {
	var added []int
	for _, line := range lines {
		if line == nil || line.ID == "" {
			continue
		}
		if _, ok := r.lines[line.ID]; ok {
			continue
		}
		stored := *line
		stored.Notes = nil
		r.lines[line.ID] = &stored
		r.registered[line.LineNumber] = struct{}{}
		if _, ok := r.noByID[line.ID]; !ok {
			r.noByID[line.ID] = line.LineNumber
			r.trackBounds(line.LineNumber)
		}
		added = append(added, line.LineNumber)
	}

	for _, note := range notes {
		if note == nil || note.ID == "" {
			continue
		}
		r.registerNote(note)
	}

	sort.Ints(added)
	return added
}

func (r *Registry) registerNote(note *types.Note) {
	stored, ok := r.notes[note.ID]
	if !ok {
		copied := *note
		copied.Variants = append([]types.Variant(nil), note.Variants...)
		copied.Lines = append([]types.LineRef(nil), note.Lines...)
		copied.LineRange = ""
		if len(copied.Lines) > 1 {
			first := r.labelFor(copied.Lines[0])
			last := r.labelFor(copied.Lines[len(copied.Lines)-1])
			copied.LineRange = first + "-" + last + ": "
		}
		stored = &copied
		r.notes[note.ID] = stored
	}
	for _, ref := range note.Lines {
		line, ok := r.lines[ref.ID]
		if !ok || line.HasNote(note.ID) {
			continue
		}
		line.Notes = append(line.Notes, note.ID)
	}
}

func (r *Registry) labelFor(ref types.LineRef) string {
	if line, ok := r.lines[ref.ID]; ok && line.Label != "" {
		return line.Label
	}
	no := ref.LineNumber
	if n, ok := r.noByID[ref.ID]; ok {
		no = n
	}
	if stub, ok := r.stubByNo[no]; ok && stub.Label != "" {
		return stub.Label
	}
	return ref.ID
}

func (r *Registry) trackBounds(no int) {
	if len(r.stubs) > 0 {
		return
	}
	if r.lowest == 0 && r.highest == 0 {
		r.lowest, r.highest = no, no
		return
	}
	if no < r.lowest {
		r.lowest = no
	}
	if no > r.highest {
		r.highest = no
	}
}

func (r *Registry) Line(id string) *types.Line {
	return r.lines[id]
}

func (r *Registry) LineByNo(no int) *types.Line {
	id, ok := r.IDForNo(no)
	if !ok {
		return nil
	}
	return r.lines[id]
}

// IDForNo maps an ordinal to its line ID using the skeleton, falling back
// to registered lines.
func (r *Registry) IDForNo(no int) (string, bool) {
	if stub, ok := r.stubByNo[no]; ok {
		return stub.ID, true
	}
	for id, line := range r.lines {
		if line.LineNumber == no {
			return id, true
		}
	}
	return "", false
}

func (r *Registry) NoForID(id string) (int, bool) {
	no, ok := r.noByID[id]
	return no, ok
}

func (r *Registry) Stub(no int) (types.LineStub, bool) {
	stub, ok := r.stubByNo[no]
	return stub, ok
}

func (r *Registry) Stubs() []types.LineStub {
	return r.stubs
}

func (r *Registry) Note(id string) *types.Note {
	return r.notes[id]
}

// NotesFor returns the notes linked to a line in discovery order.
func (r *Registry) NotesFor(lineID string) []*types.Note {
	line := r.lines[lineID]
	if line == nil {
		return nil
	}
	out := make([]*types.Note, 0, len(line.Notes))
	for _, id := range line.Notes {
		if note := r.notes[id]; note != nil {
			out = append(out, note)
		}
	}
	return out
}

func (r *Registry) IsRegistered(no int) bool {
	_, ok := r.registered[no]
	return ok
}

// RegisteredNos returns every registered ordinal, ascending.
func (r *Registry) RegisteredNos() []int {
	out := make([]int, 0, len(r.registered))
	for no := range r.registered {
		out = append(out, no)
	}
	sort.Ints(out)
	return out
}

func (r *Registry) RegisteredCount() int {
	return len(r.registered)
}

// FirstUnregistered walks the skeleton in document order.
func (r *Registry) FirstUnregistered() (int, bool) {
	for _, stub := range r.stubs {
		if _, ok := r.registered[stub.LineNumber]; !ok {
			return stub.LineNumber, true
		}
	}
	return 0, false
}

func (r *Registry) FullyRegistered() bool {
	_, remaining := r.FirstUnregistered()
	return len(r.stubs) > 0 && !remaining
}

func (r *Registry) ActScenes() []string {
	return append([]string(nil), r.actScenes...)
}

// FirstNoOfActScene returns the lowest ordinal tagged with key.
func (r *Registry) FirstNoOfActScene(key string) (int, bool) {
	for _, stub := range r.stubs {
		if stub.ActScene() == key {
			return stub.LineNumber, true
		}
	}
	return 0, false
}

func (r *Registry) ActSceneOf(no int) string {
	if stub, ok := r.stubByNo[no]; ok {
		return stub.ActScene()
	}
	if line := r.LineByNo(no); line != nil {
		return line.ActScene()
	}
	return ""
}

// Bounds returns the lowest and highest known ordinals; ok is false until
// anything is known.
func (r *Registry) Bounds() (lowest, highest int, ok bool) {
	if len(r.stubs) == 0 && len(r.lines) == 0 {
		return 0, 0, false
	}
	return r.lowest, r.highest, true
}

// Ordinals lists every known ordinal in document order.
func (r *Registry) Ordinals() []int {
	if len(r.stubs) > 0 {
		out := make([]int, len(r.stubs))
		for i, stub := range r.stubs {
			out[i] = stub.LineNumber
		}
		return out
	}
	return r.RegisteredNos()
}
