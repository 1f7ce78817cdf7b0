package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/procedure"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/randengine"
)

func newProcedureCmd() *cobra.Command {
	var (
		out  string
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "procedure",
		Short: "生成被试的随机试次编排（procedure.txt）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Control.Seed
			}
			plan := procedure.Generate(randengine.New(seed))
			fmt.Fprint(cmd.OutOrStdout(), plan.String())
			if out == "" {
				return nil
			}
			return procedure.Write(filepath.Clean(out), plan)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", procedure.FileName, "输出文件，为空时只打印")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "随机数种子，0表示使用当前时间（缺省取配置文件）")
	return cmd
}
