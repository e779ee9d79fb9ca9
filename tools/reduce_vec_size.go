package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kydenul/log"

	im "github.com/kydenul/idiom-matcher"
)

// reduce_vec_size packs an idiom list and its .vec files into a single bundle,
// keeping the first -max idioms. Bundles are much smaller than full-precision .vec
// pairs and load in one read.
func main() {
	language := flag.String("lang", "", "Language tag, e.g. fi")
	name := flag.String("name", "", "Language display name")
	idioms := flag.String("idioms", "", "Idiom list (.json or .csv)")
	idiomVectors := flag.String("idiom-vectors", "", "Idiom-only .vec file")
	contextVectors := flag.String("context-vectors", "", "Idiom+context .vec file (optional)")
	outputFile := flag.String("output", "", "Output bundle path")
	maxIdioms := flag.Int("max", 0, "Maximum number of idioms to keep (0 = all)")
	flag.Parse()

	logger := log.NewLog(&log.Options{Level: "info"})

	if *language == "" || *idioms == "" || *idiomVectors == "" || *outputFile == "" {
		logger.Errorln("Usage: reduce_vec_size -lang <tag> -idioms <idioms.json> " +
			"-idiom-vectors <idiom.vec> [-context-vectors <context.vec>] -output <bundle.json> [-max N]")
		os.Exit(2)
	}

	loader := im.NewCollectionLoader(logger)
	loader.SetProgressCallback(func(loaded, total int) {
		if loaded%10000 == 0 {
			fmt.Printf("Processed %d/%d vectors...\n", loaded, total)
		}
	})

	collection, err := loader.LoadCollection(im.CollectionSpec{
		Language:       *language,
		Name:           *name,
		Idioms:         *idioms,
		IdiomVectors:   *idiomVectors,
		ContextVectors: *contextVectors,
	})
	if err != nil {
		logger.Errorf("Failed to load collection: %v", err)
		os.Exit(1)
	}

	if *maxIdioms > 0 && collection.Len() > *maxIdioms {
		collection.Entries = collection.Entries[:*maxIdioms]
	}

	outFile, err := os.Create(*outputFile)
	if err != nil {
		logger.Errorf("Failed to create output file: %v", err)
		os.Exit(1)
	}
	defer outFile.Close()

	if err := im.WriteBundle(outFile, collection); err != nil {
		logger.Errorf("Failed to write bundle: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote bundle with %d idioms (dimension %d)\n", collection.Len(), collection.Dimension())

	var inputSize int64
	for _, path := range []string{*idioms, *idiomVectors, *contextVectors} {
		if path == "" {
			continue
		}
		if st, err := os.Stat(path); err == nil {
			inputSize += st.Size()
		}
	}
	if outStat, err := outFile.Stat(); err == nil && inputSize > 0 {
		fmt.Printf("Input size: %.2f MB\n", float64(inputSize)/(1024*1024))
		fmt.Printf("Bundle size: %.2f MB\n", float64(outStat.Size())/(1024*1024))
	}
}
