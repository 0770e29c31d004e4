// gemini-image は Gemini の画像生成 API を呼び出して画像ファイルを書き出す CLI です。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shouni/gemini-image-client/cmd/gemini-image/commands"
)

func main() {
	// .env は任意なので、無ければ環境変数だけで動かす
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
