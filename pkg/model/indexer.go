package model

import "fmt"

// indexer interface is design to give a unique index to each scheduling variable (course, semester) and vice versa.
// Indices are dense, start at 0 and follow catalog order then semester order
type indexer interface {
	// Returns the index of the variable scheduling course in semester, if the course can be taken that semester
	Index(course, semester uint64) (uint64, bool)
	// Returns the course and semester of a variable from its index
	Attributes(index uint64) (course uint64, semester uint64)
	// Returns the amount of scheduling variables
	Variables() uint64
}

type indexerImplementation struct {
	attributes [][2]uint64
	indices    map[[2]uint64]uint64
}

func newIndexer(input ModelInput) indexer {
	indexer := &indexerImplementation{
		attributes: make([][2]uint64, 0, len(input.pending)*len(input.horizon)),
		indices:    make(map[[2]uint64]uint64),
	}

	for _, course := range input.pending {
		for _, semester := range input.offered(course) {
			key := [2]uint64{course, semester}
			indexer.indices[key] = uint64(len(indexer.attributes))
			indexer.attributes = append(indexer.attributes, key)
		}
	}

	return indexer
}

func (indexer *indexerImplementation) Index(course, semester uint64) (uint64, bool) {
	index, ok := indexer.indices[[2]uint64{course, semester}]
	return index, ok
}

func (indexer *indexerImplementation) Attributes(index uint64) (course, semester uint64) {
	attributes := indexer.attributes[index]
	return attributes[0], attributes[1]
}

func (indexer *indexerImplementation) Variables() uint64 {
	return uint64(len(indexer.attributes))
}

func variableName(input ModelInput, course, semester uint64) string {
	return fmt.Sprintf("x[%v,%v]", input.Catalog[course].Id, semester)
}
