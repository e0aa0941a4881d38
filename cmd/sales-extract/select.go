package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"example.com/ticketsales/internal/domain"
)

// sortByDate orders series by representative date, keeping API order for
// equal dates.
func sortByDate(series []domain.EventSeries) []domain.EventSeries {
	out := slices.Clone(series)
	slices.SortStableFunc(out, func(a, b domain.EventSeries) int { return strings.Compare(a.Date, b.Date) })
	return out
}

func printEvents(w io.Writer, series []domain.EventSeries) {
	for i, s := range series {
		fmt.Fprintf(w, "%2d - %s -- %s\n", i, s.Date, s.Name)
	}
}

// pick validates an index into series.
func pick(series []domain.EventSeries, index int) (domain.EventSeries, error) {
	if index < 0 || index >= len(series) {
		return domain.EventSeries{}, fmt.Errorf("event number %d out of range 0-%d", index, len(series)-1)
	}
	return series[index], nil
}

// prompt lists series on w and reads the chosen index from r.
func prompt(r io.Reader, w io.Writer, series []domain.EventSeries) (domain.EventSeries, error) {
	printEvents(w, series)
	fmt.Fprint(w, "Enter the number for the event you want: ")

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return domain.EventSeries{}, fmt.Errorf("read selection: %w", err)
	}
	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return domain.EventSeries{}, fmt.Errorf("invalid event number %q", strings.TrimSpace(line))
	}
	return pick(series, index)
}
