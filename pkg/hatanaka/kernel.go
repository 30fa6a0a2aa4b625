package hatanaka

import (
	"fmt"
	"strconv"
	"strings"
)

// NumKernel differences one numeric field, e.g. an observation of a satellite, up to the configured order.
// The zero value is not usable, use NewNumKernel.
type NumKernel struct {
	maxOrder int     // largest order accepted by Init
	order    int     // order of the current arc
	level    int     // order reached so far, grows from 0 to order after each Init
	diffs    []int64 // diffs[0] is the last value, diffs[i] its i-th difference. nil if not initialized.
}

// NewNumKernel returns an uninitialized kernel. order is the differencing order used by Encode.
func NewNumKernel(order, maxOrder int) (*NumKernel, error) {
	if maxOrder < 0 || order < 0 || order > maxOrder {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidOrder, order, maxOrder)
	}
	return &NumKernel{maxOrder: maxOrder, order: order}, nil
}

// Init starts a new arc with the absolute value seed, differenced with order from now on.
func (k *NumKernel) Init(order int, seed int64) error {
	if order < 0 || order > k.maxOrder {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidOrder, order, k.maxOrder)
	}
	k.order = order
	k.level = 0
	k.diffs = append(make([]int64, 0, order+1), seed)
	return nil
}

// Ready reports whether the kernel has been initialized.
func (k *NumKernel) Ready() bool {
	return k.diffs != nil
}

// Reset drops the history. The next value has to start a new arc.
func (k *NumKernel) Reset() {
	k.diffs = nil
	k.level = 0
}

// Order returns the differencing order of the current arc.
func (k *NumKernel) Order() int {
	return k.order
}

// History returns a copy of the stored difference levels, the last value first.
func (k *NumKernel) History() []int64 {
	if k.diffs == nil {
		return nil
	}
	return append([]int64(nil), k.diffs...)
}

// Decode integrates the difference d through the history and returns the recovered value.
func (k *NumKernel) Decode(d int64) (int64, error) {
	if !k.Ready() {
		return 0, ErrUninitializedKernel
	}
	if k.level < k.order {
		k.level++
		k.diffs = append(k.diffs, 0)
	}
	k.diffs[k.level] = d
	for i := k.level - 1; i >= 0; i-- {
		k.diffs[i] += k.diffs[i+1]
	}
	return k.diffs[0], nil
}

// Encode returns the token for value v: the difference of the current order, or
// the initialization token "<order>&<v>" if the kernel is not initialized.
func (k *NumKernel) Encode(v int64) string {
	if !k.Ready() {
		k.level = 0
		k.diffs = append(make([]int64, 0, k.order+1), v)
		return strconv.Itoa(k.order) + "&" + strconv.FormatInt(v, 10)
	}

	level := k.level
	if level < k.order {
		level++
		k.diffs = append(k.diffs, 0)
	}
	prev, next := k.diffs[0], v
	k.diffs[0] = v
	for i := 1; i <= level; i++ {
		// prev holds the old level i-1, next the new one.
		prev, next = k.diffs[i], next-prev
		k.diffs[i] = next
	}
	k.level = level
	return strconv.FormatInt(k.diffs[level], 10)
}

// decodeToken decodes a numeric token, either "<order>&<seed>" or a plain difference.
// It reports whether the token initialized the kernel.
func (k *NumKernel) decodeToken(tok string) (v int64, seeded bool, err error) {
	if ord, seed, found := strings.Cut(tok, "&"); found {
		order, err := strconv.Atoi(ord)
		if err != nil || len(ord) != 1 {
			return 0, true, fmt.Errorf("%w: %q", ErrInvalidOrder, tok)
		}
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return 0, true, fmt.Errorf("%w: %q", ErrMalformedObservation, tok)
		}
		return v, true, k.Init(order, v)
	}

	d, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformedObservation, tok)
	}
	v, err = k.Decode(d)
	return v, false, err
}

// TextKernel differences a text field column by column, e.g. the epoch line or a flag.
type TextKernel struct {
	line  []byte
	ready bool
}

// Init sets the reference text.
func (k *TextKernel) Init(seed string) {
	k.line = append(k.line[:0], seed...)
	k.ready = true
}

// Ready reports whether the kernel has been initialized.
func (k *TextKernel) Ready() bool {
	return k.ready
}

// Reset drops the reference text.
func (k *TextKernel) Reset() {
	k.line = k.line[:0]
	k.ready = false
}

// Text returns the current reference text.
func (k *TextKernel) Text() string {
	return string(k.line)
}

// Decode overlays tok onto the reference text and returns the result: a blank keeps the
// reference character, '&' sets a blank and any other character replaces it.
func (k *TextKernel) Decode(tok string) (string, error) {
	if !k.ready {
		return "", ErrUninitializedKernel
	}
	k.overlay(tok)
	return string(k.line), nil
}

// Encode returns the difference of s to the reference text with trailing blanks removed
// and makes s the new reference. An uninitialized kernel is initialized with s and s is returned.
func (k *TextKernel) Encode(s string) string {
	if !k.ready {
		k.Init(s)
		return s
	}
	n := max(len(s), len(k.line))
	diff := make([]byte, n)
	for i := 0; i < n; i++ {
		c, old := byte(' '), byte(' ')
		if i < len(s) {
			c = s[i]
		}
		if i < len(k.line) {
			old = k.line[i]
		}
		switch {
		case c == old:
			diff[i] = ' '
		case c == ' ':
			diff[i] = '&'
		default:
			diff[i] = c
		}
	}
	tok := strings.TrimRight(string(diff), " ")
	k.overlay(tok)
	return tok
}

func (k *TextKernel) overlay(tok string) {
	for len(k.line) < len(tok) {
		k.line = append(k.line, ' ')
	}
	for i := 0; i < len(tok); i++ {
		switch tok[i] {
		case ' ':
		case '&':
			k.line[i] = ' '
		default:
			k.line[i] = tok[i]
		}
	}
}
