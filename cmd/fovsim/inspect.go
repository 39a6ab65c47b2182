package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/LdDl/fovlog-go/sink"
)

// inspect prints observer summary, or records of one observer when it is set
func inspect(ctx context.Context, index *sink.SQLite, w io.Writer, observer string, objectID uint64, limit int) error {
	if observer == "" && objectID == 0 {
		summaries, err := index.Observers(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OBSERVER\tRECORDS\tOBJECTS")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Observer, s.Records, s.Objects)
		}
		return tw.Flush()
	}
	records, err := index.Records(ctx, sink.RecordFilter{
		Observer: observer,
		ObjectID: fovlog.ObjectID(objectID),
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return printRecords(w, records)
}

func printRecords(w io.Writer, records []fovlog.LogRecord) error {
	_, err := w.Write(fovlog.FormatBatch(records))
	return err
}
