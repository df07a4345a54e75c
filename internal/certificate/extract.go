// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package certificate pulls the key fields out of the OCR text of a Korean
// business registration certificate (사업자등록증).
package certificate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BusinessInfo holds the fields found on a certificate. Missing fields are
// empty strings.
type BusinessInfo struct {
	CompanyName    string `json:"company_name"`
	BusinessNumber string `json:"business_number"`
	Representative string `json:"representative_name"`
	OpeningDate    string `json:"opening_date"`
	Parsed         bool   `json:"parsed"`
}

// OCR output spaces out label characters and often puts ':' or '|' between
// a label and its value. Normalize folds every Unicode space (NBSP, U+3000)
// to ASCII so the `\s` classes below see it.
var (
	whitespaceRe     = regexp.MustCompile(`[\s\p{Z}]+`)
	companyRe        = regexp.MustCompile(`상\s*호\s*\(\s*법\s*인\s*명\s*\)\s*[:|\s]*([가-힣a-zA-Z0-9]+)`)
	businessNumberRe = regexp.MustCompile(`(\d{3}-\d{2}-\d{5})`)
	representativeRe = regexp.MustCompile(`성\s*명\s*\(\s*대\s*표\s*자\s*\)\s*[:|\s]*([가-힣]+)`)
	openingDateRe    = regexp.MustCompile(`개\s*업\s*(?:연\s*월\s*)?일\s*[:|\s]*(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일`)
)

// Extract scans text for each field independently. It never fails; fields
// that cannot be found stay empty and Parsed reports whether any was found.
func Extract(text string) BusinessInfo {
	normalized := Normalize(text)

	info := BusinessInfo{
		CompanyName:    firstGroup(companyRe, normalized),
		BusinessNumber: strings.ReplaceAll(firstGroup(businessNumberRe, normalized), "-", ""),
		Representative: firstGroup(representativeRe, normalized),
		OpeningDate:    openingDate(normalized),
	}
	info.Parsed = info.CompanyName != "" || info.BusinessNumber != "" ||
		info.Representative != "" || info.OpeningDate != ""
	return info
}

// Normalize turns line breaks into spaces and collapses whitespace runs,
// including non-ASCII spaces, into a single ASCII space.
func Normalize(text string) string {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	return whitespaceRe.ReplaceAllString(text, " ")
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func openingDate(s string) string {
	m := openingDateRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s%02d%02d", m[1], month, day)
}
