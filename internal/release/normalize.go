// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import (
	"regexp"
	"strings"
)

// NormalizedTitle is a release title reduced to something a metadata search understands.
type NormalizedTitle struct {
	// Cleaned is never empty for a non-empty input.
	Cleaned string
	// Year is the first standalone 19xx/20xx token of the raw title, or empty.
	Year string
	// AltTitle is the text of a trailing parenthesis, or empty.
	AltTitle string
}

var (
	tokenSplitRe     = regexp.MustCompile(`[.\s]+`)
	yearRe           = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	trailingYearRe   = regexp.MustCompile(`\s+\d{4}$`)
	trailingParenRe  = regexp.MustCompile(`\(([^)]+)\)\s*$`)
	seasonTokenRe    = regexp.MustCompile(`^[Ss]\d{1,2}(?:$|[Ee\-])`)
	groupLikeTokenRe = regexp.MustCompile(`^[A-Z0-9]{2,}$`)
	extensionRe      = regexp.MustCompile(`(?i)\.(mkv|avi|mp4|wmv|divx|m4v|ts)$`)
	bracketsRe       = regexp.MustCompile(`[\[\]{}()]`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// technicalMarkers ends the title part of a release name. Compared upper-cased
// against whole tokens and against each hyphen separated segment.
var technicalMarkers = map[string]struct{}{
	// resolution
	"2160P": {}, "1080P": {}, "1080I": {}, "720P": {}, "576P": {}, "480P": {}, "4K": {}, "UHD": {},
	// source
	"BLURAY": {}, "BDRIP": {}, "BRRIP": {}, "BD": {}, "REMUX": {}, "WEB": {}, "WEB-DL": {}, "WEBDL": {},
	"WEBRIP": {}, "HDTV": {}, "DVDRIP": {}, "DVD": {}, "HDRIP": {}, "HDLIGHT": {}, "AMZN": {}, "NF": {},
	"DSNP": {}, "ATVP": {}, "HMAX": {},
	// video
	"X264": {}, "X265": {}, "H264": {}, "H265": {}, "H.264": {}, "H.265": {}, "HEVC": {}, "AVC": {},
	"AV1": {}, "XVID": {}, "HDR": {}, "HDR10": {}, "DV": {}, "10BIT": {}, "10BITS": {},
	// audio
	"AAC": {}, "AC3": {}, "E-AC3": {}, "EAC3": {}, "DTS": {}, "DTS-HD": {}, "TRUEHD": {}, "ATMOS": {},
	"DDP": {}, "DD5": {}, "FLAC": {}, "MP3": {},
	// language / region
	"MULTI": {}, "FRENCH": {}, "TRUEFRENCH": {}, "VOSTFR": {}, "VFF": {}, "VFQ": {}, "VF2": {}, "VOF": {},
	"VFI": {}, "SUBFRENCH": {},
	// packaging
	"INTEGRAL": {}, "INTEGRALE": {}, "COMPLETE": {}, "COFFRET": {}, "REPACK": {}, "PROPER": {},
	"MKV": {}, "AVI": {}, "MP4": {},
}

// namedGroups are release groups whose names do not look like group tags.
var namedGroups = map[string]struct{}{
	"FW": {}, "SLAY3R": {}, "FERVEX": {}, "ESPER": {}, "SUPPLY": {}, "THEMOUCHE": {}, "QTZ": {},
}

// isTechnicalToken reports whether a token marks the end of the title part.
func isTechnicalToken(token string) bool {
	token = strings.Trim(token, "[](){}")
	if token == "" {
		return false
	}
	if seasonTokenRe.MatchString(token) || groupLikeTokenRe.MatchString(token) {
		return true
	}

	upper := strings.ToUpper(token)
	if isMarker(upper) {
		return true
	}

	if strings.Contains(upper, "-") {
		for _, segment := range strings.Split(upper, "-") {
			if segment != "" && isMarker(segment) {
				return true
			}
		}
	}

	return false
}

func isMarker(upper string) bool {
	if _, ok := technicalMarkers[upper]; ok {
		return true
	}
	_, ok := namedGroups[upper]
	return ok
}

// NormalizeTitle strips technical and release group noise from a raw release
// name. It is total and deterministic.
func NormalizeTitle(raw string) NormalizedTitle {
	var nt NormalizedTitle

	collapsed := collapseWhitespace(raw)
	if collapsed == "" {
		nt.Cleaned = raw
		return nt
	}

	tokens := tokenSplitRe.Split(collapsed, -1)

	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if isTechnicalToken(token) {
			break
		}
		kept = append(kept, token)
	}

	cleaned := tidy(strings.Join(kept, " "))

	if m := yearRe.FindString(raw); m != "" {
		nt.Year = m
	}

	if m := trailingParenRe.FindStringSubmatch(collapsed); m != nil {
		nt.AltTitle = strings.TrimSpace(m[1])
	}

	if usableAltTitle(nt.AltTitle) && len(nt.AltTitle) < len(cleaned) {
		cleaned = nt.AltTitle
	}

	if cleaned == "" {
		cleaned = collapsed
	}

	if nt.Year != "" && !strings.Contains(cleaned, nt.Year) {
		cleaned = cleaned + " " + nt.Year
	}

	nt.Cleaned = cleaned
	return nt
}

// usableAltTitle rejects parentheses made only of years and closed-set markers,
// e.g. "(2010)" or "(1080p x265)". Names such as "(CSI NY)" are kept.
func usableAltTitle(alt string) bool {
	usable := false
	for _, token := range tokenSplitRe.Split(alt, -1) {
		if token == "" {
			continue
		}
		if yearRe.MatchString(token) && len(token) == 4 {
			continue
		}
		if _, ok := technicalMarkers[strings.ToUpper(token)]; ok {
			continue
		}
		usable = true
	}
	return usable
}

func tidy(s string) string {
	s = extensionRe.ReplaceAllString(s, "")
	s = bracketsRe.ReplaceAllString(s, " ")
	s = collapseWhitespace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "-"))
	return s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripTrailingYear removes a trailing " dddd" from a cleaned title.
// The second return value is false when there was nothing to strip.
func StripTrailingYear(cleaned string) (string, bool) {
	stripped := trailingYearRe.ReplaceAllString(cleaned, "")
	if stripped == cleaned || stripped == "" {
		return cleaned, false
	}
	return stripped, true
}
