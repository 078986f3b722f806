//go:build !opencv

package export

func defaultFilters() Filters { return PureFilters{} }
