// Command print-zone parses a zone source and dumps the records it
// would serve, one per line in presentation form. Useful for checking
// what a master file or YAML descriptor actually loads as.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bastiondns/bastiondns/internal/zone"
)

func main() {
	descriptor := flag.Bool("descriptor", false, "Treat the input as a YAML zone descriptor")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: print-zone [-descriptor] path/to/zonefile\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	var (
		store *zone.Store
		err   error
	)
	if *descriptor {
		store, err = zone.LoadDescriptor(path)
	} else {
		store, err = zone.ParseFile(path, nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load zone: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ORIGIN: %s\n", store.Apex())
	fmt.Printf("DEFAULT_TTL: %d\n", store.DefaultTTL())
	fmt.Printf("RECORDS: %d\n", store.RecordCount())

	for _, name := range store.Names() {
		for _, rec := range store.Records(name) {
			ttl := rec.TTL
			if !rec.HasTTL {
				ttl = store.DefaultTTL()
			}
			fmt.Printf("  %s %d IN %s %s\n", name, ttl, rec.Data.Type(), rec.Data)
		}
	}
}
