// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import (
	"strings"

	"github.com/moistari/rls"
)

// Annotations are display hints parsed from a release name.
type Annotations struct {
	Resolution string   `json:"resolution,omitempty"`
	Source     string   `json:"source,omitempty"`
	Codec      []string `json:"codec,omitempty"`
	Group      string   `json:"group,omitempty"`
	Season     int      `json:"season,omitempty"`
	Episode    int      `json:"episode,omitempty"`
}

// Annotate parses name with rls. Unrecognised fields are left empty.
func Annotate(name string) Annotations {
	name = strings.TrimSpace(name)
	if name == "" {
		return Annotations{}
	}

	r := rls.ParseString(name)

	return Annotations{
		Resolution: r.Resolution,
		Source:     r.Source,
		Codec:      r.Codec,
		Group:      r.Group,
		Season:     r.Series,
		Episode:    r.Episode,
	}
}
