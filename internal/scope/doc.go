// Package scope builds the predicates that decide whether a crawl may
// follow a "next" link.
//
// Every predicate is a pure function of the candidate locator. Predicates
// are combined with All; the crawler calls the combined predicate once per
// candidate and stops at the first locator it rejects.
//
// Example: restrict a Perseus crawl to book 1, chapter 1 of a work:
//
//	inScope := scope.All(
//		scope.SameHost(start),
//		scope.FromStart(start, "doc", ":", "book=", "chapter="),
//	)
package scope
