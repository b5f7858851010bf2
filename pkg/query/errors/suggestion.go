package errors

import (
	"fmt"
	"strings"
)

// SuggestValue suggests the closest valid value for an unknown one.
// It uses case-insensitive Levenshtein distance to find similar values.
func SuggestValue(unknown string, validValues []string) string {
	if len(validValues) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string

	for _, value := range validValues {
		dist := levenshteinDistance(strings.ToLower(unknown), strings.ToLower(value))
		if dist < minDistance {
			minDistance = dist
			bestMatch = value
		}
	}

	// Only suggest if the distance is reasonable
	if minDistance <= 3 && minDistance < len([]rune(unknown)) {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	return fmt.Sprintf("Valid values: %s", strings.Join(validValues, ", "))
}

// SuggestFieldQualifier suggests qualifying a bare term with a field name.
func SuggestFieldQualifier(term string) string {
	return fmt.Sprintf("Qualify the term with a field name, e.g. field:%s", term)
}

// SuggestExactValue suggests replacing an unsupported construct with an exact comparison.
func SuggestExactValue(field, value string) string {
	if field == "" {
		field = "field"
	}
	return fmt.Sprintf("Compare against the exact value, e.g. %s:%s", field, value)
}

// SuggestExplicitOperator suggests inserting AND or OR between juxtaposed clauses.
func SuggestExplicitOperator() string {
	return "Join the clauses with AND or OR, or configure ambiguous_resolution"
}

// SuggestMaxDepth suggests the smallest max_depth that would accept the query.
func SuggestMaxDepth(depth int) string {
	return fmt.Sprintf("Simplify the query or set max_depth to at least %d", depth)
}

// levenshteinDistance computes the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	len1 := len(r1)
	len2 := len(r2)

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len1][len2]
}
