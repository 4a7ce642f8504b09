// Filename: internal/surface/cdp.go
package surface

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ghosttype-cli/internal/inserter"
)

// ErrNotFound means no editable element matched any locator selector.
var ErrNotFound = errors.New("no editable element found")

// editableSelectors is the locator preference chain: rich-text roots first,
// plain inputs as a fallback.
var editableSelectors = []string{
	`[contenteditable="true"]`,
	`[contenteditable=""]`,
	`textarea`,
	`input[type="text"]`,
}

// CDP is an editable surface inside a live Chrome tab, addressed by a CSS
// selector and driven over the DevTools protocol. The ctx passed to its
// methods must be a chromedp tab context.
type CDP struct {
	selector string
	logger   *zap.Logger
}

// Locate finds the target editable surface. A non-empty preferred selector
// is tried first; otherwise the default preference chain is walked. Returns
// ErrNotFound when nothing editable exists in the document.
func Locate(ctx context.Context, preferred string, logger *zap.Logger) (*CDP, error) {
	candidates := editableSelectors
	if preferred != "" {
		candidates = append([]string{preferred}, candidates...)
	}
	for _, sel := range candidates {
		var present bool
		js := fmt.Sprintf(`document.querySelector(%q) !== null`, sel)
		if err := chromedp.Run(ctx, chromedp.Evaluate(js, &present)); err != nil {
			return nil, fmt.Errorf("surface: locator query failed: %w", err)
		}
		if present {
			logger.Debug("editable surface located", zap.String("selector", sel))
			return &CDP{selector: sel, logger: logger}, nil
		}
	}
	return nil, ErrNotFound
}

// Focus gives the element input focus.
func (s *CDP) Focus(ctx context.Context) error {
	if err := chromedp.Run(ctx, chromedp.Focus(s.selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("surface: focus %s: %w", s.selector, err)
	}
	return nil
}

// ExecCommand runs a named structured edit command against the element's
// owner document and returns the command's own reported success. The element
// is re-focused first so the command lands on the intended target.
func (s *CDP) ExecCommand(ctx context.Context, command, value string) (bool, error) {
	js := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el) return false;
		if (document.activeElement !== el && !el.contains(document.activeElement)) {
			el.focus();
		}
		const doc = el.ownerDocument || document;
		try {
			return doc.execCommand(%q, false, %q);
		} catch (e) {
			return false;
		}
	})()`, s.selector, command, value)

	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return false, fmt.Errorf("surface: execCommand %s: %w", command, err)
	}
	return ok, nil
}

// DispatchKey sends one synthetic key event. CDP routes keyboard input to
// the page's focused element, which realizes the dispatch-target preference
// (inner body, else focus target, else document) without explicit targeting.
func (s *CDP) DispatchKey(ctx context.Context, ev inserter.KeyEvent) error {
	params := keyParams(ev)
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return params.Do(ctx)
	}))
}

// DispatchInput synthesizes a raw text-insertion input event on the focused
// element.
func (s *CDP) DispatchInput(ctx context.Context, text string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
}

// keyParams translates an agnostic key event into DevTools dispatch
// parameters, resolving key identity, code and virtual key codes from the
// standard keyboard layout.
func keyParams(ev inserter.KeyEvent) *input.DispatchKeyEventParams {
	def := keyDef(ev)

	var p *input.DispatchKeyEventParams
	switch ev.Type {
	case inserter.KeyDown:
		p = input.DispatchKeyEvent(input.KeyDown)
	case inserter.KeyPress:
		p = input.DispatchKeyEvent(input.KeyChar)
	default:
		p = input.DispatchKeyEvent(input.KeyUp)
	}

	p = p.WithKey(def.Key).
		WithCode(def.Code).
		WithWindowsVirtualKeyCode(def.Windows).
		WithNativeVirtualKeyCode(def.Native)

	if ev.Type == inserter.KeyPress {
		p = p.WithText(def.Text).WithUnmodifiedText(def.Unmodified)
	}
	if ev.Ctrl {
		p = p.WithModifiers(input.ModifierCtrl)
	}
	return p
}

// keyDef resolves the layout definition for an event's key, falling back to
// a bare printable definition for characters outside the standard map.
func keyDef(ev inserter.KeyEvent) *kb.Key {
	r := ev.Ch
	switch {
	case ev.Key == "Enter":
		r = '\r'
	case ev.Key != "":
		r = []rune(ev.Key)[0]
	}
	if def, ok := kb.Keys[r]; ok {
		return def
	}
	return &kb.Key{
		Key:        string(r),
		Text:       string(r),
		Unmodified: string(r),
		Print:      true,
	}
}

// Clipboard drives the page's asynchronous clipboard. Construct it with
// NewClipboard, which probes availability; a nil Clipboard disables the
// clipboard insertion mechanism gracefully.
type Clipboard struct {
	logger *zap.Logger
}

// NewClipboard returns a Clipboard when the page exposes the async clipboard
// API, or nil (and no error) when it does not.
func NewClipboard(ctx context.Context, logger *zap.Logger) (*Clipboard, error) {
	var available bool
	js := `!!(navigator.clipboard && navigator.clipboard.writeText && navigator.clipboard.readText)`
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &available)); err != nil {
		return nil, fmt.Errorf("surface: clipboard probe failed: %w", err)
	}
	if !available {
		logger.Debug("async clipboard unavailable, clipboard mechanism disabled")
		return nil, nil
	}
	return &Clipboard{logger: logger}, nil
}

// WriteText puts text on the shared clipboard.
func (c *Clipboard) WriteText(ctx context.Context, text string) error {
	js := fmt.Sprintf(`navigator.clipboard.writeText(%q).then(() => true)`, text)
	var ok bool
	return chromedp.Run(ctx, chromedp.Evaluate(js, &ok, awaitPromise))
}

// ReadText returns the current clipboard contents.
func (c *Clipboard) ReadText(ctx context.Context) (string, error) {
	var text string
	err := chromedp.Run(ctx, chromedp.Evaluate(`navigator.clipboard.readText()`, &text, awaitPromise))
	return text, err
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true).WithUserGesture(true)
}
