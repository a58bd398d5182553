package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cfbkit/cfb"
	"github.com/joshuapare/cfbkit/pkg/types"
)

var (
	putCreate     bool
	putParents    bool
	putSectorSize int
)

func init() {
	cmd := newPutCmd()
	cmd.Flags().BoolVar(&putCreate, "create", false, "Create the container if it does not exist")
	cmd.Flags().BoolVarP(&putParents, "parents", "p", false, "Create missing parent storages")
	cmd.Flags().IntVar(&putSectorSize, "sector-size", 512, "Sector size for new containers (512 or 4096)")
	rootCmd.AddCommand(cmd)
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <file> <stream> [source]",
		Short: "Create or replace a stream",
		Long: `The put command writes a stream from a file, or from standard input
when no source is given, and saves the container in place.

Example:
  cfbctl put report.xls Workbook workbook.bin
  echo hello | cfbctl put new.cfb Docs/Note --create -p`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = os.Stdin
			if len(args) == 3 {
				in, err := os.Open(args[2])
				if err != nil {
					return err
				}
				defer in.Close()
				src = in
			}
			return runPut(args[0], args[1], src)
		},
	}
}

func runPut(path, stream string, src io.Reader) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	f, err := openOrCreate(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if putParents {
		if err := mkdirAll(f, stream); err != nil {
			return err
		}
	}
	if err := f.WriteStream(stream, data); err != nil {
		return err
	}
	if err := f.SaveFile(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	printVerbose("Wrote %s (%d bytes) to %s\n", stream, len(data), path)
	return nil
}

func openOrCreate(path string) (*cfb.File, error) {
	_, statErr := os.Stat(path)
	if putCreate && errors.Is(statErr, os.ErrNotExist) {
		return cfb.New(append(containerOptions(), cfb.WithSectorSize(putSectorSize))...)
	}
	return openContainer(path)
}

// mkdirAll creates the storages leading to stream.
func mkdirAll(f *cfb.File, stream string) error {
	parts := strings.Split(strings.Trim(stream, "/"), "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/")
		if _, err := f.Lookup(dir); err == nil {
			continue
		} else if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		if _, err := f.CreateStorage(dir); err != nil {
			return err
		}
	}
	return nil
}
