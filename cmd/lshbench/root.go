package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	f := &benchFlags{}

	root := &cobra.Command{
		Use:   "lshbench",
		Short: "Build, query and evaluate LSH indexes",
		Long: `lshbench builds locality-sensitive hashing indexes over raw float32
datasets, answers k-nearest-neighbour queries and reports recall against a
ground-truth file.

Examples:
  lshbench build -d 128 -L 32 -r 4 -D sift_base.fvecs -I sift.lsh
  lshbench query -q 100 -k 10 -Q sift_query.fvecs -D sift_base.fvecs -I sift.lsh
  lshbench run -n 10000 -d 128 -q 100 -L 32 -r 4 -k 10 -b 32 \
      -D base.bin -Q query.bin -G truth.txt -O out.txt -I index.lsh`,
		SilenceUsage: true,
	}

	f.register(root)

	root.AddCommand(
		newBuildCmd(f),
		newQueryCmd(f),
		newRunCmd(f),
	)

	return root
}

func newBuildCmd(f *benchFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build an index from a dataset and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBench(cmd, f)
			if err != nil {
				return err
			}
			return b.build(cmd.Context())
		},
	}
}

func newQueryCmd(f *benchFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Load a saved index and answer a query set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBench(cmd, f)
			if err != nil {
				return err
			}
			return b.query(cmd.Context())
		},
	}
}

func newRunCmd(f *benchFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load or build an index, query it and report recall",
		Long: `run loads the index file when it exists and builds it from the dataset
otherwise. After querying, a freshly built index is saved to the index file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBench(cmd, f)
			if err != nil {
				return err
			}
			return b.run(cmd.Context())
		},
	}
}
