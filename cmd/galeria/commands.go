package main

import (
	"fmt"
	"strconv"

	"github.com/galeria-market/galeria-client/internal/catalog"
	"github.com/galeria-market/galeria-client/internal/config"
	"github.com/galeria-market/galeria-client/internal/models"
	"github.com/galeria-market/galeria-client/internal/sales"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "galeria %s\n", config.GetFullVersion())
		},
	}
}

func newLoginCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cli.app.Session.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in, session valid until %s\n", sess.ExpiresAt.Format("15:04:05"))
			return nil
		},
	}
}

func newLogoutCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli.app.Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newRegisterCmd(cli *cliApp) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create a new storefront account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.RegisterRequest{
				Username: args[0],
				Password: args[1],
				Email:    email,
				Role:     models.ParseRole(role),
			}
			profile, err := cli.app.Client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", profile.Username, profile.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", "BUYER", "Account role: BUYER or ARTIST")

	return cmd
}

func newWhoamiCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := cli.app.Session.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s\n", profile.Username, profile.Email, profile.Role)
			return nil
		},
	}
}

func newBrowseCmd(cli *cliApp) *cobra.Command {
	var filter catalog.Filter

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List catalog entries, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nfts, err := cli.app.Catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, nft := range filter.Apply(nfts) {
				fmt.Fprintf(cmd.OutOrStdout(), "%6d  $%-10.2f %-4d pieces  %s\n", nft.ID, nft.Price, nft.PhysicalPieces, nft.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Title, "title", "", "Filter by title substring")
	cmd.Flags().Float64Var(&filter.MinPrice, "min-price", 0, "Minimum price (inclusive)")
	cmd.Flags().Float64Var(&filter.MaxPrice, "max-price", 0, "Maximum price (inclusive)")

	return cmd
}

func newNFTCmd(cli *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nft",
		Short: "Show or manage catalog entries",
	}
	cmd.AddCommand(newNFTShowCmd(cli), newNFTCreateCmd(cli), newNFTDeleteCmd(cli))
	return cmd
}

func newNFTShowCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nft id %q", args[0])
			}
			nft, err := cli.app.Catalog.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s — $%.2f, %d physical pieces\n", nft.Title, nft.Price, nft.PhysicalPieces)
			if nft.Description != "" {
				fmt.Fprintln(out, nft.Description)
			}
			for _, url := range nft.ImageURLs {
				fmt.Fprintln(out, url)
			}
			return nil
		},
	}
}

func newNFTCreateCmd(cli *cliApp) *cobra.Command {
	var nft models.NFT
	var image string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "List a new piece (artist accounts)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if image != "" {
				nft.ImageURLs = []string{image}
			}
			created, err := cli.app.Catalog.Create(cmd.Context(), nft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created nft %d: %s\n", created.ID, created.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&nft.Title, "title", "", "Title")
	cmd.Flags().StringVar(&nft.Description, "description", "", "Description")
	cmd.Flags().Float64Var(&nft.Price, "price", 0, "Price")
	cmd.Flags().IntVar(&nft.PhysicalPieces, "pieces", 0, "Number of physical pieces")
	cmd.Flags().StringVar(&image, "image", "", "Image URL")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("price")

	return cmd
}

func newNFTDeleteCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a catalog entry (artist accounts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nft id %q", args[0])
			}
			if err := cli.app.Catalog.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted nft %d\n", id)
			return nil
		},
	}
}

func newCartCmd(cli *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and mutate the shopping cart",
	}
	cmd.AddCommand(
		newCartShowCmd(cli),
		newCartAddCmd(cli),
		newCartRemoveCmd(cli),
		newCartQuantityCmd(cli),
		newCartDeleteCmd(cli),
	)
	return cmd
}

func newCartShowCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch and display the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := cli.app.Cart.FetchCart(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cart %s\n", snapshot.CartID)
			for _, item := range snapshot.Items {
				fmt.Fprintf(out, "%6d  $%-10.2f %-4d pieces  %s\n", item.NFTID, item.Price, item.PhysicalPieces, item.Title)
			}
			fmt.Fprintf(out, "subtotal: $%.2f\n", snapshot.Subtotal())
			return nil
		},
	}
}

func newCartAddCmd(cli *cliApp) *cobra.Command {
	var pieces int

	cmd := &cobra.Command{
		Use:   "add <nftId>",
		Short: "Add an NFT to the cart, creating the cart if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nft id %q", args[0])
			}
			if err := cli.app.Cart.AddItem(cmd.Context(), id, pieces); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added nft %d to cart %s\n", id, cli.app.Cart.CartID())
			return nil
		},
	}

	cmd.Flags().IntVar(&pieces, "pieces", 1, "Number of physical pieces")

	return cmd
}

func newCartRemoveCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <nftId>",
		Short: "Remove an NFT from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nft id %q", args[0])
			}
			if err := cli.app.Cart.RemoveItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed nft %d\n", id)
			return nil
		},
	}
}

func newCartQuantityCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "quantity <nftId> <pieces>",
		Short: "Change the physical-piece count for a cart item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nft id %q", args[0])
			}
			pieces, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid piece count %q", args[1])
			}
			if err := cli.app.Cart.UpdateQuantity(cmd.Context(), id, pieces); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated nft %d to %d pieces\n", id, pieces)
			return nil
		},
	}
}

func newCartDeleteCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the whole cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.app.Cart.DeleteCart(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cart deleted")
			return nil
		},
	}
}

func newCheckoutCmd(cli *cliApp) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Confirm the purchase of the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			receipt, err := cli.app.Cart.Checkout(cmd.Context())
			if err != nil {
				return err
			}
			if record {
				if _, err := cli.app.Sales.Record(cmd.Context(), *receipt); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "purchase confirmed for cart %s\n", receipt.CartID)
			fmt.Fprintf(out, "date:  %s\n", receipt.ConfirmedAt.Format("2006-01-02 15:04"))
			fmt.Fprintf(out, "total: $%.2f\n", receipt.SalePrice)
			return nil
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Also post the receipt to the sales ledger")

	return cmd
}

func newSalesCmd(cli *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "sales",
		Short: "Show purchase or sales history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			title := sales.HistoryTitle(models.RoleUnknown)
			if profile, err := cli.app.Session.CurrentUser(ctx); err == nil {
				title = sales.HistoryTitle(profile.Role)
			}

			records, err := cli.app.Sales.History(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, title)
			for _, record := range records {
				date := record.SaleDate
				if date.IsZero() {
					date = record.ConfirmedAt
				}
				fmt.Fprintf(out, "%s  cart %-12s $%.2f\n", date.Format("2006-01-02"), record.CartID, record.SalePrice)
			}
			return nil
		},
	}
}
