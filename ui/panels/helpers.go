package panels

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2/widget"
)

// newIntEntry returns an entry that calls set with every value that
// parses as a non-negative integer. Other input is left for the user to fix.
func newIntEntry(initial int, set func(int)) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(initial))
	e.Validator = func(s string) error {
		_, err := parseCount(s)
		return err
	}
	e.OnChanged = func(s string) {
		if v, err := parseCount(s); err == nil {
			set(v)
		}
	}
	return e
}

func parseCount(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
