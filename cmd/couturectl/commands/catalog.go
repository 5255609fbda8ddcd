package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/couture/internal/services"
)

var (
	categoryInput services.CategoryInput
	productInput  services.ProductInput
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage catalog categories",
}

var categoryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, _, err := setup()
		if err != nil {
			return err
		}
		category, err := services.NewCatalogService(e.store, e.log).CreateCategory(cmd.Context(), categoryInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created category %s (%s)\n", category.Slug, category.ID)
		return nil
	},
}

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage catalog products",
}

var productCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, _, err := setup()
		if err != nil {
			return err
		}
		product, err := services.NewCatalogService(e.store, e.log).CreateProduct(cmd.Context(), productInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created product %s (%s) at %s\n", product.Slug, product.ID, product.Price.StringFixed(2))
		return nil
	},
}

func init() {
	f := categoryCreateCmd.Flags()
	f.StringVar(&categoryInput.Name, "name", "", "Category name (required)")
	f.StringVar(&categoryInput.Slug, "slug", "", "URL slug (derived from the name when empty)")
	f.StringVar(&categoryInput.Description, "description", "", "Description")
	f.StringVar(&categoryInput.ImageURL, "image-url", "", "Image URL")
	_ = categoryCreateCmd.MarkFlagRequired("name")
	categoryCmd.AddCommand(categoryCreateCmd)

	f = productCreateCmd.Flags()
	f.StringVar(&productInput.Name, "name", "", "Product name (required)")
	f.StringVar(&productInput.Slug, "slug", "", "URL slug (derived from the name when empty)")
	f.StringVar(&productInput.Description, "description", "", "Description")
	f.StringVar(&productInput.Price, "price", "", "Price, e.g. 25000.00 (required)")
	f.StringVar(&productInput.ImageURL, "image-url", "", "Image URL")
	f.StringVar(&productInput.Measurements, "measurements", "", "Size notes")
	f.StringVar(&productInput.CategorySlug, "category", "", "Category slug")
	_ = productCreateCmd.MarkFlagRequired("name")
	_ = productCreateCmd.MarkFlagRequired("price")
	productCmd.AddCommand(productCreateCmd)

	rootCmd.AddCommand(categoryCmd, productCmd)
}
