package main

import (
	"flag"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rowbridge-dev/RowBridge-Engine/arrowio"
	"github.com/rowbridge-dev/RowBridge-Engine/convert"
)

// rowbridge converts an Arrow IPC stream file into a file of
// concatenated BSON documents, one per row.
func main() {
	in := flag.String("in", "", "input Arrow IPC stream file")
	out := flag.String("out", "", "output BSON file")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *in, err)
	}

	codec := arrowio.NewCodec()
	records, err := codec.ReadAll(data)
	if err != nil {
		log.Fatalf("Failed to read IPC stream: %v", err)
	}
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}
	defer f.Close()

	conv := convert.NewConverter()
	var total int
	for _, rec := range records {
		rows, err := arrowio.RecordRows(rec)
		if err != nil {
			log.Fatalf("Failed to extract rows: %v", err)
		}

		for i, row := range rows {
			doc, err := conv.FromRow(row)
			if err != nil {
				log.Fatalf("Row %d: %v", total+i, err)
			}
			raw, err := bson.Marshal(doc)
			if err != nil {
				log.Fatalf("Row %d: failed to marshal document: %v", total+i, err)
			}
			if _, err := f.Write(raw); err != nil {
				log.Fatalf("Failed to write document: %v", err)
			}
		}
		total += len(rows)
	}

	log.Printf("Wrote %d documents to %s", total, *out)
}
