package main

import (
	"fmt"
	"sort"

	"github.com/likearthian/singlemodel"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/guregu/null.v4"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [field]",
		Short: "Prints the value of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			rec, err := singlemodel.Instance(ctx, cfg.Table)
			if err != nil {
				return err
			}

			value, ok := rec.GetString(args[0])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "(null)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [field] [value]",
		Short: "Sets the value of a field and commits it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setNull, _ := cmd.Flags().GetBool("null")
			if setNull == (len(args) == 2) {
				return errors.New("pass either a value or --null")
			}

			value := null.String{}
			if !setNull {
				value = null.StringFrom(args[1])
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			rec, err := singlemodel.Instance(ctx, cfg.Table)
			if err != nil {
				return err
			}

			if !rec.Set(args[0], value).IsDirty(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
				return nil
			}

			if err := rec.Commit(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "set successfully")
			return nil
		},
	}
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Prints every field of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			rec, err := singlemodel.Instance(ctx, cfg.Table)
			if err != nil {
				return err
			}

			fields := rec.Fields()
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, fields[k].String)
			}
			return nil
		},
	}
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Creates the key/value table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creator, ok := backend.(singlemodel.TableCreator)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "driver %s needs no table setup\n", cfg.Driver)
				return nil
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			td := singlemodel.NewTableDef(cfg.Table)
			td.KeyField = cfg.KeyColumn
			td.ValueField = cfg.ValueColumn
			if err := creator.CreateTable(ctx, td); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s ready\n", td.FullTableName())
			return nil
		},
	}
)
