package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ScheduleSlot is a daily time-of-day trigger for an automatic update
// attempt. Immutable after scheduler start.
type ScheduleSlot struct {
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Label  string `json:"label"`
}

// DefaultSlots returns the stock morning/afternoon/evening schedule.
func DefaultSlots() []ScheduleSlot {
	return []ScheduleSlot{
		{Hour: 8, Minute: 0, Label: "Morning"},
		{Hour: 14, Minute: 0, Label: "Afternoon"},
		{Hour: 20, Minute: 0, Label: "Evening"},
	}
}

// NextOccurrence computes the slot's next fire instant: today's occurrence
// in now's location, or tomorrow's when today's is not strictly in the
// future.
func NextOccurrence(now time.Time, slot ScheduleSlot) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), slot.Hour, slot.Minute, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// ParseSlots parses a "HH:MM=Label,HH:MM=Label" schedule string.
func ParseSlots(s string) ([]ScheduleSlot, error) {
	parts := strings.Split(s, ",")
	slots := make([]ScheduleSlot, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		timeSpec, label, ok := strings.Cut(part, "=")
		if !ok || label == "" {
			return nil, fmt.Errorf("slot %q: want HH:MM=Label", part)
		}
		hh, mm, ok := strings.Cut(timeSpec, ":")
		if !ok {
			return nil, fmt.Errorf("slot %q: want HH:MM=Label", part)
		}
		hour, err := strconv.Atoi(hh)
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("slot %q: invalid hour", part)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("slot %q: invalid minute", part)
		}
		slots = append(slots, ScheduleSlot{Hour: hour, Minute: minute, Label: label})
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("no slots in %q", s)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Hour != slots[j].Hour {
			return slots[i].Hour < slots[j].Hour
		}
		return slots[i].Minute < slots[j].Minute
	})
	return slots, nil
}
