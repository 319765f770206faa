package lshgo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/lshgo"
	"github.com/hupe1980/lshgo/batch"
	"github.com/hupe1980/lshgo/blobstore"
	"github.com/hupe1980/lshgo/persistence"
)

func exampleData() [][]float32 {
	return [][]float32{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
}

// Example_search builds an index and refines candidates into exact neighbours.
func Example_search() {
	ctx := context.Background()
	data := exampleData()

	idx, err := lshgo.New(2,
		lshgo.WithSignatureLength(8),
		lshgo.WithRadius(5),
		lshgo.WithK(2),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := idx.Build(ctx, data); err != nil {
		log.Fatal(err)
	}

	results, err := idx.Search(ctx, [][]float32{{10, 10}}, data)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(results[0][0].ID, results[0][0].Distance)
	// Output: 3 0
}

// Example_query streams raw candidates to a sink.
func Example_query() {
	ctx := context.Background()
	data := exampleData()

	idx, err := lshgo.New(2, lshgo.WithSignatureLength(8), lshgo.WithRadius(5))
	if err != nil {
		log.Fatal(err)
	}
	if err := idx.Build(ctx, data); err != nil {
		log.Fatal(err)
	}

	seen := map[int]bool{}
	err = idx.Query(ctx, [][]float32{{0, 0}}, batch.SinkFunc(func(_, candidate int) error {
		seen[candidate] = true
		return nil
	}))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(seen[0])
	// Output: true
}

// Example_persistence saves an index and loads it back.
func Example_persistence() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	idx, err := lshgo.New(2,
		lshgo.WithHasher(lshgo.HasherPivot),
		lshgo.WithSignatureLength(2),
		lshgo.WithPivots(4),
		lshgo.WithCompression(persistence.CompressionZSTD),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := idx.Build(ctx, exampleData()); err != nil {
		log.Fatal(err)
	}
	if err := idx.Save(ctx, store, "example.lsh"); err != nil {
		log.Fatal(err)
	}

	loaded, err := lshgo.Load(ctx, store, "example.lsh")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(loaded.Len(), loaded.Config().Hasher, loaded.BuildID() == idx.BuildID())
	// Output: 6 pivot true
}
