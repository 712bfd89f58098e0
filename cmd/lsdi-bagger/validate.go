package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ndlib/baggins/bagit"
)

var validateCmd = &cobra.Command{
	Use:     "validate BAG...",
	Aliases: []string{"check"},
	Short:   "check the manifests of bags",
	Long: `Check that every file in each bag matches its manifest checksums.
A bag may be a directory or a zip file.`,
	Example: "lsdi-bagger validate /data/bags/7svgb-Atlanta-city-directory",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	var invalid int
	for _, path := range args {
		if err := validateBag(path); err != nil {
			invalid++
			fmt.Printf("%s: invalid\n", path)
			fmt.Printf("  %v\n", err)
			continue
		}
		fmt.Printf("%s: valid\n", path)
	}
	if invalid > 0 {
		return errExit
	}
	return nil
}

func validateBag(path string) error {
	if strings.HasSuffix(path, ".zip") {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return err
		}
		r, err := bagit.NewReader(f, fi.Size())
		if err != nil {
			return err
		}
		return r.Verify()
	}
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	return bag.Validate()
}
