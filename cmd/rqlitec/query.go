package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rqlitec/rqlitec"
)

var queryConsistency string

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a read-only SQL statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		level := rqlitec.Weak
		switch strings.ToLower(queryConsistency) {
		case "strong":
			level = rqlitec.Strong
		case "none":
			level = rqlitec.None
		}

		res, err := conn.Query(context.Background(), level, args[0])
		if err != nil {
			return err
		}
		printQueryResult(res)
		return nil
	},
}

var execTransactional bool

var execCmd = &cobra.Command{
	Use:   "exec <sql>",
	Short: "Run a write SQL statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		if !execTransactional {
			res, err := conn.Execute(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("last_insert_id=%d rows_affected=%d\n", res.LastInsertID, res.RowsAffected)
			return nil
		}

		bulk, err := conn.ExecuteMany(context.Background(), true, []rqlitec.Statement{{SQL: args[0]}})
		if err != nil {
			return err
		}
		res := bulk.Items[0].Exec
		fmt.Printf("last_insert_id=%d rows_affected=%d\n", res.LastInsertID, res.RowsAffected)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryConsistency, "consistency", "weak", "read consistency: strong, weak, or none")
	execCmd.Flags().BoolVar(&execTransactional, "transaction", false, "run as a transaction (only meaningful for batches)")
}

func printQueryResult(res *rqlitec.QueryResult) {
	cols := res.Columns()
	fmt.Println(strings.Join(cols, "\t"))
	for i := 0; i < res.NumRows(); i++ {
		row := res.Row(i)
		vals := make([]string, len(cols))
		for j, c := range cols {
			vals[j] = fmt.Sprintf("%v", row[c])
		}
		fmt.Println(strings.Join(vals, "\t"))
	}
}
