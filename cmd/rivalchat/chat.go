package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hrygo/rivalchat/plugin/ai"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	"github.com/hrygo/rivalchat/store"
)

const chatHelp = "输入消息后回车发送，/exit 退出，/reveal 查看角色档案"

// runChat reads one user message per line from in and prints every persona reply as soon as it is appended.
// Failed turns are reported and the loop keeps reading.
func runChat(ctx context.Context, session *roleplay.Session, pair *store.PersonaPair, mode store.ChatMode, in io.Reader, out io.Writer) error {
	names := map[store.SenderID]string{
		store.SenderPersonaA: pair.A.Name,
		store.SenderPersonaB: pair.B.Name,
	}
	printReply := func(m *store.Message) {
		fmt.Fprintf(out, "%s：%s\n", names[m.SenderID], m.Content)
	}

	fmt.Fprintf(out, "[%s] %s\n", chatTitle(mode, pair), chatHelp)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reveal":
			fmt.Fprint(out, roleplay.RevealMarkdown(pair))
			continue
		}

		_, err := session.Send(ctx, mode, line, ai.Credentials{}, printReply)
		var partial *roleplay.PartialTurnError
		switch {
		case errors.As(err, &partial):
			fmt.Fprintf(out, "（%s 没有回复：%v）\n", names[partial.Missing], partial.Cause)
		case err != nil:
			fmt.Fprintf(out, "（发送失败：%v）\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func chatTitle(mode store.ChatMode, pair *store.PersonaPair) string {
	switch mode {
	case store.ChatModePrivateA:
		return pair.A.Name
	case store.ChatModePrivateB:
		return pair.B.Name
	default:
		return "三人小群"
	}
}
