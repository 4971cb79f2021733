package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"tvcompare/internal/compare"
	"tvcompare/pkg/models"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Log in to or out of the admin API",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the admin password and store the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			return fmt.Errorf("--password is required")
		}
		c, err := newClient(false)
		if err != nil {
			return err
		}
		var resp tokenData
		if err := c.do(cmd.Context(), http.MethodPost, "/auth/login", map[string]string{"password": password}, &resp); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ logged in")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke every admin token and forget the local one",
	RunE: func(cmd *cobra.Command, args []string) error {
		if c, err := newClient(true); err == nil {
			if err := c.do(cmd.Context(), http.MethodPost, "/auth/logout", nil, nil); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "server logout failed:", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ logged out")
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the admin password",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := cmd.Flags().GetString("current")
		next, _ := cmd.Flags().GetString("new")
		confirm, _ := cmd.Flags().GetString("confirm")
		if confirm == "" {
			confirm = next
		}
		c, err := newClient(true)
		if err != nil {
			return err
		}
		body := map[string]string{"current_password": current, "new_password": next, "confirm_password": confirm}
		if err := c.do(cmd.Context(), http.MethodPost, "/auth/change-password", body, nil); err != nil {
			return err
		}
		// The server revoked every token, including ours.
		_ = clearToken(tokenPath)
		fmt.Fprintln(cmd.OutOrStdout(), "✅ password changed, log in again")
		return nil
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List, show and delete TV models",
}

type itemList struct {
	Total int           `json:"total"`
	Items []models.Item `json:"items"`
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, optionally filtered by name or brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("query")
		c, err := newClient(false)
		if err != nil {
			return err
		}
		path := "/items"
		if q != "" {
			path += "?q=" + url.QueryEscape(q)
		}
		var resp itemList
		if err := c.do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		return writeItems(cmd.OutOrStdout(), resp.Items)
	},
}

var itemsShowCmd = &cobra.Command{
	Use:   "show <id-or-slug>",
	Short: "Show one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		var it models.Item
		if err := c.do(cmd.Context(), http.MethodGet, "/items/"+url.PathEscape(args[0]), nil, &it); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), it)
	},
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminCall(cmd, http.MethodDelete, "/admin/items/"+url.PathEscape(args[0]), nil)
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List and delete comparable fields",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fields in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		var resp struct {
			Fields []models.Field `json:"fields"`
		}
		if err := c.do(cmd.Context(), http.MethodGet, "/fields", nil, &resp); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDER\tID\tTYPE\tRULE\tLABEL")
		for _, f := range resp.Fields {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", f.Order, f.ID, f.Type, f.ComparisonRule, f.Label)
		}
		return tw.Flush()
	},
}

var fieldsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a field (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminCall(cmd, http.MethodDelete, "/admin/fields/"+url.PathEscape(args[0]), nil)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <id> <id> [id...]",
	Short: "Compare up to four items side by side",
	Args:  cobra.RangeArgs(1, compare.MaxSelection),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		var table compare.Table
		if err := c.do(cmd.Context(), http.MethodPost, "/compare", map[string][]string{"item_ids": args}, &table); err != nil {
			return err
		}
		return writeTable(cmd.OutOrStdout(), table)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <id> <id> [id...]",
	Short: "Ask the AI for a written comparison",
	Args:  cobra.RangeArgs(2, compare.MaxSelection),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		var out struct {
			Summary string `json:"summary"`
			Verdict string `json:"verdict"`
		}
		if err := c.do(cmd.Context(), http.MethodPost, "/compare/summary", map[string][]string{"item_ids": args}, &out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", out.Summary, out.Verdict)
		return nil
	},
}

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Manage the remote store connection (admin)",
}

var cloudStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection state and last sync time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminCall(cmd, http.MethodGet, "/admin/cloud", nil)
	},
}

var cloudConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Configure the remote store and test it",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("endpoint")
		credential, _ := cmd.Flags().GetString("credential")
		return adminCall(cmd, http.MethodPost, "/admin/cloud/connect",
			map[string]string{"endpoint": endpoint, "credential": credential})
	},
}

var cloudTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Run a connectivity diagnostic",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminCall(cmd, http.MethodPost, "/admin/cloud/test", nil)
	},
}

var cloudPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the local catalog to the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminCall(cmd, http.MethodPost, "/admin/cloud/push", nil)
	},
}

var cloudDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the remote store configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminCall(cmd, http.MethodDelete, "/admin/cloud", nil)
	},
}

var cloudSetupSQLCmd = &cobra.Command{
	Use:   "setup-sql",
	Short: "Print the SQL that creates the remote table",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		var sql string
		if err := c.do(cmd.Context(), http.MethodGet, "/admin/cloud/setup-sql", nil, &sql); err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), sql)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live catalog events over the websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		wsURL, err := websocketURL(baseURL, "/ws")
		if err != nil {
			return err
		}
		return watch(cmd.Context(), wsURL, cmd.OutOrStdout())
	},
}

func init() {
	loginCmd.Flags().String("password", "", "admin password")
	passwdCmd.Flags().String("current", "", "current password")
	passwdCmd.Flags().String("new", "", "new password")
	passwdCmd.Flags().String("confirm", "", "new password again (defaults to --new)")
	itemsListCmd.Flags().StringP("query", "q", "", "filter by name or brand")
	cloudConnectCmd.Flags().String("endpoint", "", "postgres:// DSN or https:// REST URL")
	cloudConnectCmd.Flags().String("credential", "", "password or API key")
	_ = cloudConnectCmd.MarkFlagRequired("endpoint")
	_ = cloudConnectCmd.MarkFlagRequired("credential")
}

// adminCall sends an authenticated request and prints the JSON answer.
func adminCall(cmd *cobra.Command, method, path string, payload any) error {
	c, err := newClient(true)
	if err != nil {
		return err
	}
	var out any
	if err := c.do(cmd.Context(), method, path, payload, &out); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func writeItems(w io.Writer, items []models.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tNAME\tSLUG")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Brand, it.Name, it.Slug)
	}
	return tw.Flush()
}

// writeTable renders a comparison; * marks the best value, ! a manual pick.
func writeTable(w io.Writer, t compare.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	head := []string{""}
	for _, it := range t.Items {
		head = append(head, it.Name)
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))

	for _, row := range t.Rows {
		cols := []string{row.Field.Label}
		for _, tc := range row.Cells {
			cols = append(cols, renderCell(tc))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func renderCell(tc compare.TableCell) string {
	var s string
	switch tc.Cell.Class {
	case compare.ClassAbsent:
		s = "-"
	case compare.ClassTrue:
		s = "yes"
	case compare.ClassFalse:
		s = "no"
	default:
		s = tc.Cell.Value.String()
		if tc.Cell.Unit != "" {
			s += " " + tc.Cell.Unit
		}
	}
	if tc.ManualBest {
		s += " !"
	} else if tc.Best {
		s += " *"
	}
	return s
}

func watch(ctx context.Context, wsURL string, w io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintln(w, string(msg))
	}
}
