// Package chat implements the `clinictl chat` subcommand: an interactive
// terminal client for the clinicored gateway.
package chat

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var chatExample = heredoc.Doc(`
	# Interactive chat mode
	clinictl chat

	# Single message mode
	clinictl chat "what is the adult dosing for amoxicillin?"

	# Continue an existing session
	clinictl chat --session=3f2a... "and for pediatric patients?"

	# Connect to a remote gateway
	clinictl chat --server=http://clinic-host:8780 --token=$CLINICORE_GATEWAY_TOKEN "hello"`)

// Options holds the flags of the chat subcommand.
type Options struct {
	ServerAddr string
	Token      string
	Session    string
}

// NewCmdChat creates the chat subcommand.
func NewCmdChat() *cobra.Command {
	o := &Options{
		ServerAddr: "http://localhost:8780",
		Token:      os.Getenv("CLINICORE_GATEWAY_TOKEN"),
	}

	cmd := &cobra.Command{
		Use:                   "chat [message]",
		DisableFlagsInUseLine: true,
		Short:                 "Chat with the clinical assistant",
		Long: heredoc.Doc(`
			Start a conversation with the clinical assistant through the
			clinicored gateway.

			When invoked without arguments, open an interactive chat loop.
			When invoked with a message argument, dispatch the message and
			stream the reply to stdout.`),
		Example: chatExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(args)
		},
	}

	cmd.Flags().StringVar(&o.ServerAddr, "server", o.ServerAddr, "Gateway HTTP address")
	cmd.Flags().StringVar(&o.Token, "token", o.Token, "Bearer token (defaults to CLINICORE_GATEWAY_TOKEN)")
	cmd.Flags().StringVar(&o.Session, "session", o.Session, "Session ID to continue; empty starts a new session")

	return cmd
}

// Run executes the subcommand.
func (o *Options) Run(args []string) error {
	if !strings.HasPrefix(o.ServerAddr, "http://") && !strings.HasPrefix(o.ServerAddr, "https://") {
		o.ServerAddr = "http://" + o.ServerAddr
	}
	client := NewGatewayClient(o.ServerAddr, o.Token, nil)

	if len(args) > 0 {
		message := strings.Join(args, " ")
		_, err := RunOnce(client, o.Session, message, func(delta string) {
			fmt.Print(delta)
		})
		fmt.Println()
		return err
	}
	return runInteractive(client, o.Session)
}

var (
	promptColor    = color.New(color.FgHiYellow, color.Bold)
	userColor      = color.New(color.FgHiBlue)
	assistantColor = color.New(color.FgHiMagenta, color.Bold)
	noteColor      = color.New(color.FgHiBlack)
	errColor       = color.New(color.FgHiRed, color.Bold)
)

func printBanner(client *GatewayClient, sessionID string) {
	sep := strings.Repeat("-", 60)
	promptColor.Println(sep)
	promptColor.Println(" Clinicore Chat")
	fmt.Println()
	fmt.Printf("  Server:  %s\n", client.BaseURL)
	if sessionID != "" {
		fmt.Printf("  Session: %s\n", sessionID)
	}
	fmt.Println()
	noteColor.Println("  Type a message and press Enter to send")
	noteColor.Println("  /consult <specialist> <question>  - ask a specialist")
	noteColor.Println("  /tool <symbol> <json-args>        - invoke a tool")
	noteColor.Println("  /quit                             - exit")
	promptColor.Println(sep)
	fmt.Println()
}

// runInteractive runs the chat loop with direct terminal output, so replies
// can be freely selected and copied.
func runInteractive(client *GatewayClient, sessionID string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println()
		noteColor.Println("Goodbye!")
		os.Exit(0)
	}()

	printBanner(client, sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("> ")
		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Println()
			noteColor.Println("Goodbye!")
			return nil
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			noteColor.Println("Goodbye!")
			return nil
		}

		userColor.Println(input)
		assistantColor.Println("assistant")

		newSession, err := RunOnce(client, sessionID, input, func(delta string) {
			fmt.Print(delta)
		})
		fmt.Println()
		if err != nil {
			errColor.Printf("Error: %v\n", err)
		}
		if sessionID == "" && newSession != "" {
			sessionID = newSession
			noteColor.Printf("(session %s)\n", sessionID)
		}
		fmt.Println()
	}
}
