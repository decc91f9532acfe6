// fakedata seeds the database with fake users and blogs for development.
// Safe to run repeatedly; every run adds a fresh batch.
package main

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sunshen/weblog/model"
	"github.com/sunshen/weblog/service"
	"github.com/sunshen/weblog/utils"
	"github.com/sunshen/weblog/utils/dotenv"
	. "github.com/sunshen/weblog/utils/log"
)

const (
	fakeUserCount    = 10
	fakeBlogsPerUser = 5
	fakeUserPassword = "password"
)

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		Log.Fatal("cannot connect to DB: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	for i := 0; i < fakeUserCount; i++ {
		name := fmt.Sprintf("%s_%s", gofakeit.Username(), utils.RandomAlphabetString(4))
		user, err := service.RegisterUser(db, name, gofakeit.Email(), fakeUserPassword)
		if err != nil {
			Log.Warn("skip fake user: ", err)
			continue
		}

		update := service.ProfileUpdate{
			Age:      gofakeit.Number(11, 60),
			Gender:   []model.Gender{model.GenderMale, model.GenderFemale}[gofakeit.Number(0, 1)],
			Phone:    gofakeit.Phone(),
			Location: gofakeit.City(),
			AboutMe:  gofakeit.Sentence(6),
		}
		if err := service.UpdateProfile(db, user, update); err != nil {
			Log.Warn("fail to fill profile for ", user.Name, ": ", err)
		}
		db.Model(user).Update("confirmed", true)

		for j := 0; j < fakeBlogsPerUser; j++ {
			tags := fmt.Sprintf("%s, %s", gofakeit.Word(), gofakeit.Word())
			_, err := service.CreateBlog(db, user, gofakeit.Sentence(4), gofakeit.Paragraph(2, 3, 10, "\n\n"), tags)
			if err != nil {
				Log.Warn("fail to create fake blog: ", err)
			}
		}
	}

	Log.Info("fake data generated")
}
