package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/wordle-duel/internal/apiclient"
)

// wordlecheck plays a scripted duel against a running server and reports
// each step.
func main() {
	baseURL := flag.String("url", os.Getenv("WORDLE_BASE_URL"), "server base URL")
	code := flag.Bool("code", false, "pair through a join code instead of the queue")
	conns := flag.Int("conns", 4, "max connections to the server")
	flag.Parse()

	if *baseURL == "" {
		log.Fatal("WORDLE_BASE_URL or -url is required")
	}

	client := apiclient.NewClient(*baseURL, apiclient.WithTimeout(8*time.Second), apiclient.WithMaxConnsPerHost(*conns))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Println("/health ok")

	p1 := fmt.Sprintf("check-a-%d", time.Now().UnixNano())
	p2 := fmt.Sprintf("check-b-%d", time.Now().UnixNano())

	var gameID string
	if *code {
		created, err := client.GenerateCode(ctx, p1)
		if err != nil {
			log.Fatalf("generate-code error: %v", err)
		}
		log.Printf("generate-code ok: game=%s code=%s", created.GameID, created.GameCode)
		joined, err := client.JoinWithCodeNoWait(ctx, p2, created.GameCode)
		if err != nil {
			log.Fatalf("join-with-code error: %v", err)
		}
		gameID = joined.GameID
	} else {
		first, err := client.JoinOrCreate(ctx, p1)
		if err != nil {
			log.Fatalf("join-or-create error: %v", err)
		}
		second, err := client.JoinOrCreate(ctx, p2)
		if err != nil {
			log.Fatalf("join-or-create error: %v", err)
		}
		if second.GameID != first.GameID {
			log.Printf("queue paired %s elsewhere (game=%s); continuing with it", p2, second.GameID)
		}
		gameID = second.GameID
	}
	log.Printf("paired: game=%s", gameID)

	view, err := client.PollForPlayer(ctx, gameID, p1)
	if err != nil {
		log.Printf("poll-for-player error: %v", err)
	} else {
		log.Printf("poll-for-player ok: status=%s opponent=%s", view.Status, view.OpponentID)
	}

	for _, w := range []string{"CRANE", "SLATE"} {
		res, err := client.SubmitRow(ctx, gameID, p2, w)
		if err != nil {
			log.Printf("row %s error: code=%s %v", w, apiclient.CodeOf(err), err)
			continue
		}
		log.Printf("row %s ok: %v status=%s", w, res.RowResponse, res.Status)
	}

	share, err := client.Share(ctx, gameID, p2)
	if err != nil {
		log.Printf("share error: %v", err)
		return
	}
	fmt.Println(share)
}
