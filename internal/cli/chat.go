package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/assistant"
	"github.com/rcliao/nexuslearn/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to Study Buddy",
		Long:  "Send one message to Study Buddy, or start an interactive session when no message is given. Study Buddy can add subjects for you.",
		Run:   runChat,
	}
	cmd.Flags().Bool("history", false, "Print the saved transcript and exit")
	cmd.Flags().Bool("clear", false, "Clear the saved transcript and exit")

	RootCmd.AddCommand(cmd)
}

var (
	userColor  = color.New(color.FgHiCyan, color.Bold)
	buddyColor = color.New(color.FgHiMagenta, color.Bold)
)

func runChat(cmd *cobra.Command, args []string) {
	showHistory, _ := cmd.Flags().GetBool("history")
	clearHistory, _ := cmd.Flags().GetBool("clear")

	a := mustOpenApp(cmd)
	defer a.Close()

	switch {
	case clearHistory:
		if err := a.ws.ClearChat(); err != nil {
			exitErr("chat", err)
		}
		fmt.Println(`{"ok":true}`)
		return
	case showHistory:
		printTranscript(a.ws.ChatHistory())
		return
	}

	client, err := newGeminiClient(cmd.Context())
	if err != nil {
		exitErr("chat", err)
	}
	buddy := assistant.New(client, a.ws, a.ws.ChatCell())

	if len(args) > 0 {
		sendOne(cmd, buddy, strings.Join(args, " "))
		return
	}
	repl(cmd, buddy)
}

// sendOne runs a single turn. Text output streams; JSON output prints the
// messages the turn added.
func sendOne(cmd *cobra.Command, buddy *assistant.Assistant, msg string) {
	if textFormat() {
		streamReplies(buddy)
		err := buddy.SendMessage(cmd.Context(), msg)
		fmt.Fprintln(color.Output)
		if err != nil {
			exitErr("chat", err)
		}
		return
	}

	before := len(buddy.Messages())
	err := buddy.SendMessage(cmd.Context(), msg)
	msgs := buddy.Messages()
	if before <= len(msgs) {
		printJSON(msgs[before:])
	}
	if err != nil {
		exitErr("chat", err)
	}
}

func repl(cmd *cobra.Command, buddy *assistant.Assistant) {
	interactive := isTerminal(os.Stdin)
	if interactive {
		fmt.Fprintln(color.Output, "Study Buddy is here. Ask anything about your subjects. Ctrl-D to quit.")
	}
	streamReplies(buddy)

	sc := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			_, _ = userColor.Fprint(color.Output, "you> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		err := buddy.SendMessage(cmd.Context(), line)
		fmt.Fprintln(color.Output)
		if err != nil && !errors.Is(err, assistant.ErrGenerationFailed) {
			exitErr("chat", err)
		}
	}
	if interactive {
		fmt.Fprintln(color.Output)
	}
}

// streamReplies prints model text as it arrives.
func streamReplies(buddy *assistant.Assistant) {
	printed := map[string]int{}
	buddy.OnUpdate = func(m model.ChatMessage) {
		if m.Role != model.RoleModel {
			return
		}
		n, seen := printed[m.ID]
		if !seen {
			if len(printed) > 0 {
				fmt.Fprintln(color.Output)
			}
			_, _ = buddyColor.Fprint(color.Output, "buddy> ")
		}
		if n < len(m.Text) {
			fmt.Fprint(color.Output, m.Text[n:])
		}
		printed[m.ID] = len(m.Text)
	}
}

func printTranscript(msgs []model.ChatMessage) {
	if !textFormat() {
		if msgs == nil {
			msgs = []model.ChatMessage{}
		}
		printJSON(msgs)
		return
	}
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			_, _ = userColor.Fprint(color.Output, "you> ")
		} else {
			_, _ = buddyColor.Fprint(color.Output, "buddy> ")
		}
		fmt.Fprintln(color.Output, m.Text)
	}
}
