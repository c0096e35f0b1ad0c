// Package nav holds presentation data shared by the till's flows: option
// variants and an explicit stack of "go back" continuations.
package nav

// OptionKind tags an Option.
type OptionKind int

const (
	KindLabel OptionKind = iota
	KindCustom
)

// Option is either a plain label or custom content rendered by the
// presenter.
type Option struct {
	Kind OptionKind
	Text string
	View any
}

func Label(text string) Option { return Option{Kind: KindLabel, Text: text} }

// Custom wraps presenter-specific content. Text is a plain fallback.
func Custom(view any, text string) Option { return Option{Kind: KindCustom, View: view, Text: text} }

// Labels converts plain strings to label options.
func Labels(texts ...string) []Option {
	out := make([]Option, len(texts))
	for i, t := range texts {
		out[i] = Label(t)
	}
	return out
}

func (o Option) String() string { return o.Text }

// IsBlank reports a separator row.
func (o Option) IsBlank() bool { return o.Kind == KindLabel && o.Text == "" }

// Continuation resumes a previous view.
type Continuation func()

// Frame is a named continuation on the stack.
type Frame struct {
	Name   string
	Resume Continuation
}

// Stack records how to return to previous views. The zero value is empty
// and ready to use.
type Stack struct {
	frames []Frame
}

func (s *Stack) Push(name string, resume Continuation) {
	s.frames = append(s.frames, Frame{Name: name, Resume: resume})
}

func (s *Stack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

func (s *Stack) Peek() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Back pops the top frame and resumes it. It reports false on an empty
// stack.
func (s *Stack) Back() bool {
	f, ok := s.Pop()
	if !ok {
		return false
	}
	if f.Resume != nil {
		f.Resume()
	}
	return true
}

func (s *Stack) Depth() int { return len(s.frames) }

// Names lists frame names, bottom first.
func (s *Stack) Names() []string {
	out := make([]string, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Name
	}
	return out
}

func (s *Stack) Reset() { s.frames = nil }
