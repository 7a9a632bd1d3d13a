package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/talent-agent/internal/agent"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/router"
	"github.com/spigell/talent-agent/internal/secrets"
	"go.uber.org/zap"
)

const (
	PromptYes   = "Yes"
	PromptNo    = "No"
	PromptShow  = "Show the messages"
	previewSize = 10
)

var exitWords = map[string]bool{"exit": true, "quit": true, "salir": true}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user-id", "u", "", "recruiter user id in the candidate directory")
	chatCmd.Flags().String("token-file", "", "file with the recruiter access token. RECRUITER_TOKEN is used when unset")
	chatCmd.Flags().StringP("conversation", "c", "", "continue an existing conversation")
	chatCmd.Flags().BoolP("auto-approve", "y", false, "send bulk messages without asking for confirmation")
}

func chat(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	token, err := secrets.Optional(secrets.Source{
		Name: "recruiter token",
		Env:  "RECRUITER_TOKEN",
		File: cmd.Flag("token-file").Value.String(),
	})
	if err != nil {
		logger.Fatal("loading the recruiter token", zap.Error(err))
	}

	var confirm agent.ConfirmFunc = confirmBatch
	if cmd.Flag("auto-approve").Value.String() == "true" {
		confirm = nil
	}

	c, err := build(ctx, config, confirm, false, logger)
	if err != nil {
		logger.Fatal("building the assistant", zap.Error(err))
	}
	defer c.Close()

	conversation := cmd.Flag("conversation").Value.String()
	if conversation == "" {
		conversation = uuid.NewString()
	}
	userID := cmd.Flag("user-id").Value.String()
	logger.Info("starting a conversation", zap.String("conversation_id", conversation))

	input := promptui.Prompt{Label: ">"}
	for {
		text, err := input.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return
		}
		if err != nil {
			logger.Fatal("reading the prompt", zap.Error(err))
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if exitWords[strings.ToLower(text)] {
			return
		}

		resp := c.agent.Process(ctx, agent.Request{
			Prompt:         text,
			ConversationID: conversation,
			UserID:         userID,
			Token:          token,
		})
		logger.Debug("turn finished",
			zap.String("action", string(resp.Intent.Action)),
			zap.String("kind", string(resp.Result.Kind)),
			zap.Int("sent", len(resp.Outcomes)),
		)

		fmt.Println()
		fmt.Println(resp.Result.Explanation)
		if resp.Result.Message != "" && resp.Result.Message != resp.Result.Explanation && len(resp.Result.Batch) == 0 {
			fmt.Println()
			fmt.Println(resp.Result.Message)
		}
		fmt.Println()
	}
}

// confirmBatch asks before a bulk or reference send goes out.
func confirmBatch(_ context.Context, res router.Result) bool {
	for {
		sel := promptui.Select{
			Label: fmt.Sprintf("Send %d messages?", len(res.Batch)),
			Items: []string{PromptYes, PromptNo, PromptShow},
		}
		_, choice, err := sel.Run()
		if err != nil {
			return false
		}

		switch choice {
		case PromptYes:
			return true
		case PromptNo:
			return false
		case PromptShow:
			for i, item := range res.Batch {
				if i == previewSize {
					fmt.Printf("... and %d more\n", len(res.Batch)-previewSize)
					break
				}
				body := item.Body
				if item.Template != nil {
					body = "template " + item.Template.Name
				}
				phone := item.Phone
				if phone == "" {
					phone = "no phone"
				}
				fmt.Printf("- %s (%s): %s\n", item.Label, phone, body)
			}
		}
	}
}
