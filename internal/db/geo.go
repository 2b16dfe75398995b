package db

// CitiesByCountry is the supported region list. A profile's city must belong
// to its country's list; validation happens in the profile service.
var CitiesByCountry = map[string][]string{
	"Россия": {
		"Москва", "Санкт-Петербург", "Новосибирск", "Екатеринбург", "Казань",
		"Красноярск", "Нижний Новгород", "Челябинск", "Уфа", "Краснодар",
		"Самара", "Ростов-на-Дону", "Омск", "Воронеж", "Пермь", "Волгоград",
		"Саратов", "Тюмень", "Тольятти", "Махачкала",
	},
	"Таджикистан": {
		"Бохтар", "Бустон", "Вахдат", "Гиссар", "Гулистон", "Душанбе",
		"Истаравшан", "Истиклол", "Исфара", "Канибадам", "Куляб", "Левакант",
		"Нурек", "Пенджикент", "Рогун", "Турсунзаде", "Худжанд", "Хорог",
	},
	"Узбекистан": {
		"Ташкент", "Наманган", "Андижан", "Самарканд", "Бухара", "Карши",
		"Коканд", "Фергана", "Маргилан", "Нукус", "Чирчик", "Джизак",
		"Ургенч", "Навои", "Термез", "Алмалык", "Шахрисабз", "Бекабад",
		"Шахрихан", "Беруни",
	},
	"Кыргызстан": {
		"Айдаркен", "Базар-Коргон", "Балыкчы", "Баткен", "Бишкек",
		"Джалал-Абад", "Кадамжай", "Каинды", "Кант", "Кара-Балта", "Каракол",
		"Кара-Куль", "Кара-Суу", "Кемин", "Кербен", "Кок-Джангак",
		"Кочкор-Ата", "Кызыл-Кия", "Майлуу-Суу", "Нарын", "Ноокат",
		"Орловка", "Ош", "Раззаков", "Сулюкта", "Талас", "Таш-Кумыр",
		"Токмак", "Токтогул", "Узген", "Чолпон-Ата", "Шамалды-Сай", "Шопоков",
	},
	"Казахстан": {
		"Алматы", "Астана", "Шымкент", "Актобе", "Караганда", "Тараз",
		"Усть-Каменогорск", "Павлодар", "Атырау", "Семей", "Актау",
		"Кызылорда", "Костанай", "Уральск", "Туркестан", "Петропавловск",
		"Кокшетау", "Темиртау", "Талдыкорган", "Экибастуз",
	},
}

// ValidCountry reports whether the country is one of the supported regions.
func ValidCountry(country string) bool {
	_, ok := CitiesByCountry[country]
	return ok
}

// ValidCity reports whether city belongs to the country's city list.
func ValidCity(country, city string) bool {
	for _, c := range CitiesByCountry[country] {
		if c == city {
			return true
		}
	}
	return false
}
