package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ProductCatalog/internal/client"
)

const defaultAPI = "http://localhost:4200/api"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiURL string

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Manage the product catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	api := os.Getenv("CATALOG_API_URL")
	if api == "" {
		api = defaultAPI
	}
	root.PersistentFlags().StringVar(&apiURL, "api", api, "catalog API base URL (env CATALOG_API_URL)")

	c := func() *client.Client { return client.New(apiURL) }

	root.AddCommand(
		newListCmd(c),
		newGetCmd(c),
		newCreateCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
	)
	return root
}

func newListCmd(c func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, err := c().List(cmd.Context())
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), products...)
			return nil
		},
	}
}

func newGetCmd(c func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := c().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newCreateCmd(c func() *client.Client) *cobra.Command {
	var in client.ProductInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkInput(in); err != nil {
				return err
			}
			p, err := c().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), p)
			return nil
		},
	}
	bindInputFlags(cmd, &in)
	return cmd
}

func newUpdateCmd(c func() *client.Client) *cobra.Command {
	var in client.ProductInput

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a product's description and price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := checkInput(in); err != nil {
				return err
			}
			p, err := c().Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), p)
			return nil
		},
	}
	bindInputFlags(cmd, &in)
	return cmd
}

func newDeleteCmd(c func() *client.Client) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Excluir o produto %d? [s/N] ", id)) {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelado")
				return nil
			}
			if err := c().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "produto %d excluído\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func bindInputFlags(cmd *cobra.Command, in *client.ProductInput) {
	cmd.Flags().StringVar(&in.Description, "descricao", "", "product description")
	cmd.Flags().Float64Var(&in.Price, "preco", 0, "product price")
	_ = cmd.MarkFlagRequired("descricao")
	_ = cmd.MarkFlagRequired("preco")
}

// checkInput mirrors the form checks done before a request is sent.
func checkInput(in client.ProductInput) error {
	if strings.TrimSpace(in.Description) == "" || in.Price <= 0 {
		return errors.New("Descrição e preço são obrigatórios")
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}

func printProducts(out io.Writer, products ...client.Product) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESCRIÇÃO\tPREÇO")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\n", p.ID, p.Description, p.Price)
	}
	_ = tw.Flush()
}
