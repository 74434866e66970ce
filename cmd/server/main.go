// SoloSphereサーバーのエントリポイント。
// 案件の投稿・検索・管理と入札ワークフローを提供する単一プロセスのAPIサーバー。
package main

import (
	"log"

	"github.com/nao1215/solosphere/internal/config"
	"github.com/nao1215/solosphere/internal/marketplace"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := marketplace.NewServer(cfg)
	if err != nil {
		log.Fatalf("サーバーの初期化に失敗: %v", err)
	}
	defer func() { _ = server.Close() }()

	log.Printf("SoloSphereサーバーを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("サーバーの起動に失敗: %v", err)
	}
}
